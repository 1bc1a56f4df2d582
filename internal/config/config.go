package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	RoundsPerGame            int `mapstructure:"rounds-per-game"`
	MinPlayersToStart        int `mapstructure:"min-players-to-start"`
	MaxPlayersPerRoom        int `mapstructure:"max-players-per-room"`
	CaptionSeconds           int `mapstructure:"caption-seconds"`
	VoteSeconds              int `mapstructure:"vote-seconds"`
	ResultsSeconds           int `mapstructure:"results-seconds"`
	SkipCooldownSeconds      int `mapstructure:"skip-cooldown-seconds"`
	PairAttemptsPerRound     int `mapstructure:"pair-attempts-per-round"`
	HeartbeatTimeoutSeconds  int `mapstructure:"heartbeat-timeout-seconds"`
	SweepIntervalSeconds     int `mapstructure:"sweep-interval-seconds"`
	StaleLobbyMinutes        int `mapstructure:"stale-lobby-minutes"`
	DBMaxOpenConns           int `mapstructure:"db-max-open-conns"`
	DBMaxIdleConns           int `mapstructure:"db-max-idle-conns"`
	DBConnMaxLifetimeSeconds int `mapstructure:"db-conn-max-lifetime-seconds"`
	DBConnMaxIdleTimeSeconds int `mapstructure:"db-conn-max-idle-seconds"`
}

func Default() Config {
	return Config{
		RoundsPerGame:            6,
		MinPlayersToStart:        3,
		MaxPlayersPerRoom:        12,
		CaptionSeconds:           60,
		VoteSeconds:              30,
		ResultsSeconds:           8,
		SkipCooldownSeconds:      3,
		PairAttemptsPerRound:     100,
		HeartbeatTimeoutSeconds:  45,
		SweepIntervalSeconds:     60,
		StaleLobbyMinutes:        60,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

// Load reads settings from the environment with OOO_-prefixed keys,
// e.g. OOO_ROUNDS_PER_GAME=6.
func Load() Config {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("OOO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := map[string]int{
		"rounds-per-game":              cfg.RoundsPerGame,
		"min-players-to-start":         cfg.MinPlayersToStart,
		"max-players-per-room":         cfg.MaxPlayersPerRoom,
		"caption-seconds":              cfg.CaptionSeconds,
		"vote-seconds":                 cfg.VoteSeconds,
		"results-seconds":              cfg.ResultsSeconds,
		"skip-cooldown-seconds":        cfg.SkipCooldownSeconds,
		"pair-attempts-per-round":      cfg.PairAttemptsPerRound,
		"heartbeat-timeout-seconds":    cfg.HeartbeatTimeoutSeconds,
		"sweep-interval-seconds":       cfg.SweepIntervalSeconds,
		"stale-lobby-minutes":          cfg.StaleLobbyMinutes,
		"db-max-open-conns":            cfg.DBMaxOpenConns,
		"db-max-idle-conns":            cfg.DBMaxIdleConns,
		"db-conn-max-lifetime-seconds": cfg.DBConnMaxLifetimeSeconds,
		"db-conn-max-idle-seconds":     cfg.DBConnMaxIdleTimeSeconds,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("config unmarshal failed, using defaults: %v", err)
		return Default()
	}
	if cfg.RoundsPerGame <= 0 {
		cfg.RoundsPerGame = Default().RoundsPerGame
	}
	if cfg.MinPlayersToStart <= 0 {
		cfg.MinPlayersToStart = 1
	}
	if cfg.PairAttemptsPerRound <= 0 {
		cfg.PairAttemptsPerRound = Default().PairAttemptsPerRound
	}
	return cfg
}
