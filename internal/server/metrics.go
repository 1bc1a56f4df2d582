package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics uses a per-server registry so tests can spin up many servers
// without collector registration collisions.
type metrics struct {
	registry          *prometheus.Registry
	activeRooms       prometheus.Gauge
	onlinePlayers     prometheus.Gauge
	roomsCreated      prometheus.Counter
	roundsStarted     prometheus.Counter
	captionsSubmitted prometheus.Counter
	votesCast         prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oddoneout",
			Name:      "active_rooms",
			Help:      "Number of rooms in lobby or in progress",
		}),
		onlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oddoneout",
			Name:      "online_players",
			Help:      "Number of online players across all rooms",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddoneout",
			Name:      "rooms_created_total",
			Help:      "Total rooms created",
		}),
		roundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddoneout",
			Name:      "rounds_started_total",
			Help:      "Total rounds entered",
		}),
		captionsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddoneout",
			Name:      "captions_submitted_total",
			Help:      "Total captions accepted",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddoneout",
			Name:      "votes_cast_total",
			Help:      "Total votes accepted",
		}),
	}
	m.registry.MustRegister(
		m.activeRooms,
		m.onlinePlayers,
		m.roomsCreated,
		m.roundsStarted,
		m.captionsSubmitted,
		m.votesCast,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (s *Server) updateGauges() {
	active := 0
	online := 0
	for _, summary := range s.store.ListRoomSummaries() {
		if summary.Status == statusLobby || summary.Status == statusInProgress {
			active++
		}
		online += summary.Online
	}
	s.metrics.activeRooms.Set(float64(active))
	s.metrics.onlinePlayers.Set(float64(online))
}
