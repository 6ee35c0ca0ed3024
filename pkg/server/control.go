package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/time/rate"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
	"github.com/NicolasHaas/gomoku/pkg/rbac"
)

// Listen binds the client listener on cfg.ListenAddr.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}
	return ln, nil
}

// Serve accepts client connections on ln until the server shuts down.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	stop := context.AfterFunc(s.ctx, func() { _ = ln.Close() })
	defer stop()

	slog.Info("directory listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("accept error", "err", err)
			continue
		}
		s.conns.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}

// handleConn runs the receive loop of one client connection.
func (s *Server) handleConn(raw net.Conn) {
	defer s.conns.Done()
	conn := protocol.NewConn(raw, s.cfg.MaxLineLength)
	sess := s.registry.Add(s.ctx, conn, s.newLimiter())
	stop := context.AfterFunc(sess.ctx, func() { _ = conn.Close() })
	defer stop()

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	sess.log.Debug("new connection", "remote", sess.remoteIP)
	defer s.disconnect(sess)

	for {
		line, err := conn.ReadLine()
		if err != nil {
			switch {
			case protocol.IsClosed(err):
			case errors.Is(err, protocol.ErrLineTooLong):
				s.metrics.ProtocolErrors.Add(1)
				s.sendError(sess, protocol.ErrKindBadRequest)
				sess.log.Warn("line too long, dropping connection")
			default:
				sess.log.Warn("read error", "err", err)
			}
			return
		}
		if !sess.limiter.Allow() {
			s.metrics.RateLimited.Add(1)
			s.sendError(sess, protocol.ErrKindRateLimited)
			continue
		}
		if quit := s.handleLine(sess, line); quit {
			return
		}
	}
}

// handleLine dispatches one inbound line. It reports true when the client
// asked to disconnect.
func (s *Server) handleLine(sess *Session, line string) bool {
	tag, payload, ok := protocol.SplitTag(line)
	if !ok {
		s.metrics.ProtocolErrors.Add(1)
		s.sendError(sess, protocol.ErrKindUnknownTag+line)
		return false
	}

	role := rbac.RoleFor(s.registry.Username(sess.ID) != "")
	if kind := rbac.RequirePermission(role, tag); kind != "" {
		s.metrics.ProtocolErrors.Add(1)
		s.sendError(sess, kind)
		return false
	}
	switch tag {
	case protocol.TagDisconnect:
		return true
	case protocol.TagRegister, protocol.TagLogin, protocol.TagAnon:
		s.handleAuth(sess, tag, payload)
	case protocol.TagSendInvite:
		s.handleSendInvite(sess, payload)
	case protocol.TagRespondInvite:
		s.handleRespondInvite(sess, payload)
	case protocol.TagCancelInvite:
		s.handleCancelInvite(sess, payload)
	case protocol.TagHost:
		s.handleHost(sess, payload)
	case protocol.TagGame:
		s.handleGameReport(sess, payload)
	}
	return false
}

// disconnect removes the session, resolves invites still pending with it
// and announces the departure to everyone still online.
func (s *Server) disconnect(sess *Session) {
	defer sess.Close()
	d, ok := s.registry.Disconnect(sess.ID)
	if !ok {
		return
	}
	s.metrics.ActiveConnections.Add(-1)
	s.metrics.TotalDisconnects.Add(1)
	if d.username == "" {
		sess.log.Debug("connection closed before auth")
		return
	}
	for _, n := range d.notices {
		_ = n.to.Send(n.line)
	}
	removed := protocol.TagMatch + protocol.TagOnlineUpdate + protocol.TagRemoveUser + d.username
	for _, other := range d.others {
		_ = other.Send(removed)
	}
	sess.log.Info("client disconnected", "user", d.username)
}

func (s *Server) sendError(sess *Session, kind string) {
	_ = sess.Send(protocol.ErrorLine(kind))
}
