package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/version"
)

// metricsHandler exposes /metrics in Prometheus text exposition format and
// a /healthz liveness probe.
func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ServeMetricsHTTP serves the metrics endpoint on ln until ctx is done.
func (s *Server) ServeMetricsHTTP(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() { _ = srv.Close() })
	defer stop()

	slog.Info("metrics HTTP listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: metrics http: %w", err)
	}
	return nil
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP gomoku_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE gomoku_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "gomoku_uptime_seconds %f\n", uptime)

	_, _ = fmt.Fprintf(w, "# HELP gomoku_build_info Build version of the running directory.\n")
	_, _ = fmt.Fprintf(w, "# TYPE gomoku_build_info gauge\n")
	_, _ = fmt.Fprintf(w, "gomoku_build_info{version=%q} 1\n", version.String())

	write("gomoku_connections_active", "Current open client connections.", "gauge",
		m.ActiveConnections.Load())
	write("gomoku_connections_total", "Lifetime client connections accepted.", "counter",
		m.TotalConnections.Load())
	write("gomoku_disconnects_total", "Total client disconnects.", "counter",
		m.TotalDisconnects.Load())
	write("gomoku_sessions_online", "Authenticated users currently online.", "gauge",
		int64(s.registry.OnlineCount()))

	write("gomoku_auth_success_total", "Successful authentication attempts.", "counter",
		m.SuccessfulAuths.Load())
	write("gomoku_auth_failed_total", "Failed authentication attempts.", "counter",
		m.FailedAuths.Load())
	write("gomoku_registrations_total", "Users registered.", "counter",
		m.Registrations.Load())
	write("gomoku_anon_logins_total", "Anonymous users created.", "counter",
		m.AnonLogins.Load())

	write("gomoku_invites_sent_total", "Invites forwarded.", "counter",
		m.InvitesSent.Load())
	write("gomoku_invites_confirmed_total", "Invites confirmed.", "counter",
		m.InvitesConfirmed.Load())
	write("gomoku_invites_denied_total", "Invites denied.", "counter",
		m.InvitesDenied.Load())
	write("gomoku_invites_canceled_total", "Invites canceled.", "counter",
		m.InvitesCanceled.Load())
	write("gomoku_handoffs_total", "Host addresses relayed to a peer.", "counter",
		m.Handoffs.Load())
	write("gomoku_games_reported_total", "Wins recorded.", "counter",
		m.GamesReported.Load())

	write("gomoku_protocol_errors_total", "Rejected inbound lines.", "counter",
		m.ProtocolErrors.Load())
	write("gomoku_rate_limited_total", "Lines dropped by the rate limiter.", "counter",
		m.RateLimited.Load())
}
