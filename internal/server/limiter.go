package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	rateLimitWindow = 10 * time.Second
	rateLimitBurst  = 30
)

type rateLimiter struct {
	mu        sync.Mutex
	history   map[string][]time.Time
	lastPrune time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		history: make(map[string][]time.Time),
	}
}

func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastPrune) > rateLimitWindow {
		l.prune(now)
		l.lastPrune = now
	}
	cutoff := now.Add(-rateLimitWindow)
	kept := l.history[key][:0]
	for _, stamp := range l.history[key] {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	if len(kept) >= rateLimitBurst {
		l.history[key] = kept
		return false
	}
	l.history[key] = append(kept, now)
	return true
}

// prune drops keys whose whole window has lapsed, so a churn of client
// addresses cannot grow the history map without bound.
func (l *rateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rateLimitWindow)
	for key, stamps := range l.history {
		kept := stamps[:0]
		for _, stamp := range stamps {
			if stamp.After(cutoff) {
				kept = append(kept, stamp)
			}
		}
		if len(kept) == 0 {
			delete(l.history, key)
			continue
		}
		l.history[key] = kept
	}
}

func (s *Server) enforceRateLimit(w http.ResponseWriter, r *http.Request, action string) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if s.limiter.allow(action+"|"+host, timeNowUTC()) {
		return true
	}
	writeFailure(w, http.StatusTooManyRequests, "too many requests")
	return false
}
