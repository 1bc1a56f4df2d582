package db

import "time"

type Room struct {
	ID             uint       `gorm:"primaryKey"`
	JoinCode       string     `gorm:"size:12;uniqueIndex;not null"`
	Name           string     `gorm:"size:64;not null"`
	Status         string     `gorm:"size:32;not null"`
	Phase          string     `gorm:"size:32;not null"`
	PhaseDeadline  *time.Time `gorm:"index"`
	HostUserID     string     `gorm:"size:64;not null;default:''"`
	ImpostorUserID string     `gorm:"size:64;not null;default:''"`
	CurrentRound   int        `gorm:"not null;default:0"`
	LastActiveAt   time.Time  `gorm:"index;not null"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
	Players        []Player
	Rounds         []Round
	Events         []Event
}
