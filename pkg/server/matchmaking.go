package server

import (
	"github.com/samber/lo"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

type inviteResult int

const (
	inviteForwarded inviteResult = iota
	inviteDuplicate
	inviteNoUser
	inviteSelf
)

// Invite records a pending invite from session id to target.
func (r *Registry) Invite(id uint32, target string) (inviteResult, *presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil || s.username == "" {
		return inviteNoUser, nil
	}
	if target == s.username {
		return inviteSelf, nil
	}
	if lo.Contains(s.sent, target) {
		return inviteDuplicate, nil
	}
	ts := r.lookupLocked(target)
	if ts == nil {
		return inviteNoUser, nil
	}
	s.sent = addName(s.sent, target)
	ts.received = addName(ts.received, s.username)
	return inviteForwarded, &presence{sess: ts, name: s.username}
}

type respondResult int

const (
	respondForwarded respondResult = iota
	respondNoUser
	respondInGame
	respondNotPending
	respondBusy
)

// Respond resolves the invite inviter sent to session id. On confirm both
// sessions bind each other as peers and enter the in-game state, unless the
// inviter is already in a game; then nothing changes.
func (r *Registry) Respond(id uint32, inviter string, confirm bool) (respondResult, *presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil || s.username == "" {
		return respondNotPending, nil
	}
	is := r.lookupLocked(inviter)
	if is == nil {
		s.received = removeName(s.received, inviter)
		return respondNoUser, nil
	}
	if !lo.Contains(s.received, inviter) {
		return respondNotPending, nil
	}
	if confirm && is.inGame {
		return respondInGame, nil
	}
	if confirm && s.inGame {
		return respondBusy, nil
	}

	s.received = removeName(s.received, inviter)
	is.sent = removeName(is.sent, s.username)
	if confirm {
		s.peer, s.peerName, s.inGame = is.ID, is.username, true
		is.peer, is.peerName, is.inGame = s.ID, s.username, true
	}
	return respondForwarded, &presence{sess: is, name: s.username}
}

// Cancel withdraws a pending invite. It reports false when nothing was
// pending, which makes repeated cancels no-ops.
func (r *Registry) Cancel(id uint32, target string) (*presence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil || !lo.Contains(s.sent, target) {
		return nil, false
	}
	s.sent = removeName(s.sent, target)
	ts := r.lookupLocked(target)
	if ts == nil {
		return nil, true
	}
	ts.received = removeName(ts.received, s.username)
	return &presence{sess: ts, name: s.username}, true
}

// Peer resolves the session bound as id's opponent. peerName is returned
// even when the opponent has gone.
func (r *Registry) Peer(id uint32) (peer *Session, peerName string, bound bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil || s.peerName == "" {
		return nil, "", false
	}
	ps := r.sessions[s.peer]
	if ps == nil || ps.peer != s.ID {
		return nil, s.peerName, true
	}
	return ps, s.peerName, true
}

// EndMatch clears id's peer binding and in-game flag.
func (r *Registry) EndMatch(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.sessions[id]; s != nil {
		s.peer, s.peerName, s.inGame = 0, "", false
	}
}

// AbortMatch clears id's binding and, when the opponent is still bound to
// id, the opponent's too. It returns that opponent and id's username.
func (r *Registry) AbortMatch(id uint32) (peer *Session, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil {
		return nil, ""
	}
	if ps := r.sessions[s.peer]; s.peerName != "" && ps != nil && ps.peer == s.ID {
		ps.peer, ps.peerName, ps.inGame = 0, "", false
		peer = ps
	}
	s.peer, s.peerName, s.inGame = 0, "", false
	return peer, s.username
}

// ---- handlers ----

func (s *Server) handleSendInvite(sess *Session, target string) {
	if target == "" {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	res, to := s.registry.Invite(sess.ID, target)
	switch res {
	case inviteForwarded:
		s.metrics.InvitesSent.Add(1)
		sess.log.Debug("invite", "to", target)
		_ = to.sess.Send(protocol.TagMatch + protocol.TagSendInvite + to.name)
	case inviteDuplicate:
		// already pending
	case inviteNoUser:
		_ = sess.Send(protocol.TagMatch + protocol.NoUser + target)
	case inviteSelf:
		s.sendError(sess, protocol.ErrKindBadRequest)
	}
}

func (s *Server) handleRespondInvite(sess *Session, payload string) {
	decision, inviter, ok := protocol.SplitTag(payload)
	if !ok || inviter == "" || (decision != protocol.TagConfirm && decision != protocol.TagDeny) {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	confirm := decision == protocol.TagConfirm

	res, to := s.registry.Respond(sess.ID, inviter, confirm)
	switch res {
	case respondForwarded:
		if confirm {
			s.metrics.InvitesConfirmed.Add(1)
		} else {
			s.metrics.InvitesDenied.Add(1)
		}
		sess.log.Debug("invite answered", "inviter", inviter, "confirm", confirm)
		_ = to.sess.Send(protocol.TagMatch + protocol.TagRespondInvite + decision + to.name)
	case respondNoUser:
		_ = sess.Send(protocol.TagMatch + protocol.NoUser + inviter)
	case respondInGame:
		_ = sess.Send(protocol.TagMatch + protocol.Failure + inviter)
	case respondNotPending, respondBusy:
		s.sendError(sess, protocol.ErrKindBadRequest)
	}
}

func (s *Server) handleCancelInvite(sess *Session, target string) {
	if target == "" {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	to, canceled := s.registry.Cancel(sess.ID, target)
	if !canceled {
		return
	}
	s.metrics.InvitesCanceled.Add(1)
	if to != nil {
		_ = to.sess.Send(protocol.TagMatch + protocol.TagCancelInvite + to.name)
	}
}

// handleHost relays the host's game port to its peer with the host's
// observed IP appended.
func (s *Server) handleHost(sess *Session, payload string) {
	port, err := protocol.DecodeHostPort(payload)
	if err != nil {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	peer, peerName, bound := s.registry.Peer(sess.ID)
	if !bound {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	if peer == nil {
		s.registry.EndMatch(sess.ID)
		_ = sess.Send(protocol.TagMatch + protocol.Failure + peerName)
		return
	}
	line, _ := protocol.EncodeHost(port)
	s.metrics.Handoffs.Add(1)
	sess.log.Info("handoff", "peer", peerName, "port", port)
	_ = peer.Send(line + sess.remoteIP)
}

// handleGameReport records a finished match. A score must name the
// session and its bound peer. Only the winner's own report increments the
// counter so each game is counted once.
func (s *Server) handleGameReport(sess *Session, payload string) {
	switch payload {
	case protocol.Tie:
		s.registry.EndMatch(sess.ID)
		sess.log.Info("game ended", "result", payload)
		return
	case protocol.Aborted:
		peer, me := s.registry.AbortMatch(sess.ID)
		sess.log.Info("game ended", "result", payload)
		if peer != nil {
			_ = peer.Send(protocol.TagMatch + protocol.Failure + me)
		}
		return
	}

	winner, loser, err := protocol.DecodeScore(payload)
	if err != nil {
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	me := s.registry.Username(sess.ID)
	_, peerName, bound := s.registry.Peer(sess.ID)
	if !bound || !scoreMatches(winner, loser, me, peerName) {
		sess.log.Warn("score rejected", "winner", winner, "loser", loser, "peer", peerName)
		s.sendError(sess, protocol.ErrKindBadRequest)
		return
	}
	s.registry.EndMatch(sess.ID)

	if winner != me {
		sess.log.Info("game lost", "winner", winner)
		return
	}
	wins, err := s.registry.RecordWin(winner)
	if err != nil {
		sess.log.Error("record win failed", "err", err)
		return
	}
	s.metrics.GamesReported.Add(1)
	sess.log.Info("game won", "loser", loser, "wins", wins)
}

// scoreMatches reports whether winner and loser are me and peer in either order.
func scoreMatches(winner, loser, me, peer string) bool {
	return (winner == me && loser == peer) || (winner == peer && loser == me)
}
