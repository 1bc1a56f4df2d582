package server

import (
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"odd-one-out/internal/config"
	"odd-one-out/internal/db"

	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	cfg      config.Config
	metrics  *metrics
	limiter  *rateLimiter
	catalog  []ImageEntry
	rng      *rand.Rand
	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	s := &Server{
		store:   NewStore(),
		db:      conn,
		ws:      newWSHub(),
		cfg:     cfg,
		metrics: newMetrics(),
		limiter: newRateLimiter(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		timers:  make(map[string]*time.Timer),
	}
	s.catalog = s.loadCatalog()
	return s
}

// loadCatalog reads the image catalog from the database, falling back
// to the built-in set when the table is empty or no database is wired.
func (s *Server) loadCatalog() []ImageEntry {
	if s.db == nil {
		return defaultCatalog()
	}
	var records []db.CatalogImage
	if err := s.db.Order("id asc").Find(&records).Error; err != nil {
		log.Printf("catalog load failed, using built-in set: %v", err)
		return defaultCatalog()
	}
	if len(records) == 0 {
		return defaultCatalog()
	}
	entries := make([]ImageEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ImageEntry{
			DBID:     record.ID,
			FilePath: record.FilePath,
			Title:    record.Title,
			Category: record.Category,
		})
	}
	return entries
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/create-room", s.handleCreateRoom)
	mux.HandleFunc("POST /api/join-room", s.handleJoinRoom)
	mux.HandleFunc("POST /api/start-game", s.handleStartGame)
	mux.HandleFunc("POST /api/submit-caption", s.handleSubmitCaption)
	mux.HandleFunc("POST /api/submit-vote", s.handleSubmitVote)
	mux.HandleFunc("POST /api/leave-room", s.handleLeaveRoom)
	mux.HandleFunc("POST /api/transfer-host", s.handleTransferHost)
	mux.HandleFunc("POST /api/delete-room", s.handleDeleteRoom)
	mux.HandleFunc("POST /api/round-meta", s.handleRoundMeta)
	mux.HandleFunc("GET /api/round-image-url", s.handleRoundImageURL)
	mux.HandleFunc("POST /api/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /api/return-to-lobby", s.handleReturnToLobby)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("GET /api/rooms/{id}/results", s.handleResults)
	mux.HandleFunc("POST /api/admin/cleanup", s.handleAdminCleanup)
	mux.HandleFunc("GET /ws/rooms/{id}", s.handleRoomSocket)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.handler())
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
