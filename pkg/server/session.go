package server

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// Session is one connected client. Fields below the marker are owned by
// the Registry and only touched under its lock.
type Session struct {
	ID       uint32
	conn     *protocol.Conn
	remoteIP string
	limiter  *rate.Limiter
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger

	// guarded by Registry.mu
	username string
	sent     []string // pending invites this session sent
	received []string // pending invites this session received
	peer     uint32   // opponent session on a confirmed match, 0 if none
	peerName string
	inGame   bool
}

func newSession(parent context.Context, id uint32, conn *protocol.Conn, limiter *rate.Limiter) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:       id,
		conn:     conn,
		remoteIP: conn.RemoteIP(),
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
		log:      slog.With("session", id),
	}
}

// Send writes one line. A write failure closes the transport so the
// session's own read loop runs the disconnect cleanup.
func (s *Session) Send(line string) error {
	if err := s.conn.WriteLine(line); err != nil {
		s.log.Debug("send failed, closing session", "err", err)
		s.Close()
		return err
	}
	return nil
}

// Close cancels the session context and closes the transport.
func (s *Session) Close() {
	s.cancel()
	_ = s.conn.Close()
}

// randomSessionID returns a random non-zero ID.
func randomSessionID() uint32 {
	for {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if id := binary.BigEndian.Uint32(b[:]); id != 0 {
			return id
		}
	}
}

func addName(list []string, name string) []string {
	if lo.Contains(list, name) {
		return list
	}
	return append(list, name)
}

func removeName(list []string, name string) []string {
	return lo.Without(list, name)
}
