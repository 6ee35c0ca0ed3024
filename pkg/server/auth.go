package server

import (
	"errors"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/model"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// authReply maps a registry result to its [AUTH] payload.
func authReply(res model.AuthResult, username string) string {
	switch res {
	case model.AuthSuccess:
		return protocol.TagAuth + protocol.Success + username
	case model.AuthUsernameTaken:
		return protocol.TagAuth + protocol.UserTaken
	case model.AuthUserNotFound:
		return protocol.TagAuth + protocol.NoUser
	case model.AuthAlreadyOnline:
		return protocol.TagAuth + protocol.TagOnlineUpdate
	case model.AuthWrongPassword:
		return protocol.TagAuth + protocol.BadPass
	default:
		return protocol.TagAuth + protocol.Failure
	}
}

func (s *Server) handleAuth(sess *Session, tag, payload string) {
	var (
		res      model.AuthResult
		username string
		err      error
	)
	switch tag {
	case protocol.TagAnon:
		username, err = s.registry.AnonLogin(sess.ID)
		if errors.Is(err, ErrAnonExhausted) {
			sess.log.Warn("anonymous name space exhausted")
			s.metrics.FailedAuths.Add(1)
			_ = sess.Send(protocol.TagAuth + protocol.Failure)
			return
		}
		res = model.AuthSuccess
	default:
		var password string
		username, password, err = protocol.DecodeCredentials(payload)
		if err != nil {
			s.metrics.ProtocolErrors.Add(1)
			s.sendError(sess, protocol.ErrKindBadRequest)
			return
		}
		if tag == protocol.TagRegister {
			res, err = s.registry.Register(sess.ID, username, password)
		} else {
			res, err = s.registry.Authenticate(sess.ID, username, password)
		}
	}
	if errors.Is(err, ErrAlreadyAuthenticated) {
		s.sendError(sess, protocol.ErrKindAlreadyAuthenticated)
		return
	}
	if err != nil {
		sess.log.Error("auth failed", "tag", tag, "err", err)
		s.metrics.FailedAuths.Add(1)
		_ = sess.Send(protocol.TagAuth + protocol.Failure)
		return
	}

	if err := sess.Send(authReply(res, username)); err != nil {
		return
	}
	if res != model.AuthSuccess {
		s.metrics.FailedAuths.Add(1)
		sess.log.Debug("auth rejected", "tag", tag, "user", username, "result", res)
		return
	}

	s.metrics.SuccessfulAuths.Add(1)
	switch tag {
	case protocol.TagRegister:
		s.metrics.Registrations.Add(1)
	case protocol.TagAnon:
		s.metrics.AnonLogins.Add(1)
	}
	sess.log.Info("client authenticated", "user", username, "via", tag)
	s.announce(sess, username)
}

// announce runs the presence handshake for a newly bound session. The
// directory already holds the user, so any lookup after the broadcast
// resolves it.
func (s *Server) announce(sess *Session, username string) {
	if d := s.cfg.PresenceDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-sess.ctx.Done():
			t.Stop()
			return
		}
	}
	added := protocol.TagMatch + protocol.TagOnlineUpdate + protocol.TagNewUser
	for _, p := range s.registry.OnlineExcept(sess.ID) {
		if err := sess.Send(added + p.name); err != nil {
			return
		}
		_ = p.sess.Send(added + username)
	}
}
