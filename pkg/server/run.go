package server

import (
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Run starts the directory and metrics listeners and blocks until a
// shutdown signal arrives or a listener fails.
func (s *Server) Run() error {
	defer func() { _ = s.store.Close() }()

	ln, err := s.Listen()
	if err != nil {
		return err
	}
	var metricsLn net.Listener
	if s.cfg.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("server: listen metrics: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Serve(ln) })
	if metricsLn != nil {
		g.Go(func() error { return s.ServeMetricsHTTP(gctx, metricsLn) })
	}
	if s.cfg.MetricsLogInterval > 0 {
		s.metrics.StartPeriodicLog(s.cfg.MetricsLogInterval, gctx.Done())
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		s.Shutdown()
		return nil
	})

	slog.Info("gomoku directory running",
		"listen", ln.Addr().String(),
		"metrics", s.cfg.MetricsAddr,
		"users", s.registry.DirectorySize(),
	)
	err = g.Wait()
	s.conns.Wait()
	return err
}

// Shutdown stops accepting clients and disconnects every session.
func (s *Server) Shutdown() {
	s.cancel()
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Unlock()
	for _, sess := range s.registry.All() {
		sess.Close()
	}
}
