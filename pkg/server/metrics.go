package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks directory server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime client connections accepted
	ActiveConnections atomic.Int64 // current open client connections
	TotalDisconnects  atomic.Int64 // total client disconnects (clean + unclean)

	// Auth counters
	SuccessfulAuths atomic.Int64 // register, login and anonymous successes
	FailedAuths     atomic.Int64 // rejected or failed auth attempts
	Registrations   atomic.Int64 // new registered users
	AnonLogins      atomic.Int64 // anonymous users created

	// Matchmaking counters
	InvitesSent      atomic.Int64
	InvitesConfirmed atomic.Int64
	InvitesDenied    atomic.Int64
	InvitesCanceled  atomic.Int64
	Handoffs         atomic.Int64 // [HOST] addresses relayed to a peer
	GamesReported    atomic.Int64 // wins recorded

	// Dispatcher counters
	ProtocolErrors atomic.Int64 // unknown tags, bad payloads, out-of-state tags
	RateLimited    atomic.Int64 // lines dropped by the per-session limiter
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	SuccessfulAuths int64 `json:"successful_auths"`
	FailedAuths     int64 `json:"failed_auths"`
	Registrations   int64 `json:"registrations"`
	AnonLogins      int64 `json:"anon_logins"`

	InvitesSent      int64 `json:"invites_sent"`
	InvitesConfirmed int64 `json:"invites_confirmed"`
	InvitesDenied    int64 `json:"invites_denied"`
	InvitesCanceled  int64 `json:"invites_canceled"`
	Handoffs         int64 `json:"handoffs"`
	GamesReported    int64 `json:"games_reported"`

	ProtocolErrors int64 `json:"protocol_errors"`
	RateLimited    int64 `json:"rate_limited"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		SuccessfulAuths:   m.SuccessfulAuths.Load(),
		FailedAuths:       m.FailedAuths.Load(),
		Registrations:     m.Registrations.Load(),
		AnonLogins:        m.AnonLogins.Load(),
		InvitesSent:       m.InvitesSent.Load(),
		InvitesConfirmed:  m.InvitesConfirmed.Load(),
		InvitesDenied:     m.InvitesDenied.Load(),
		InvitesCanceled:   m.InvitesCanceled.Load(),
		Handoffs:          m.Handoffs.Load(),
		GamesReported:     m.GamesReported.Load(),
		ProtocolErrors:    m.ProtocolErrors.Load(),
		RateLimited:       m.RateLimited.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"invites", s.InvitesSent,
		"handoffs", s.Handoffs,
		"games", s.GamesReported,
		"protocol_errors", s.ProtocolErrors,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
