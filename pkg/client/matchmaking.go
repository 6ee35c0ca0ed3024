package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// SendRequest invites target to a match. Inviting a user that already has
// a pending invite from us is a no-op.
func (e *Engine) SendRequest(target string) error {
	e.mu.Lock()
	if lo.Contains(e.sent, target) {
		e.mu.Unlock()
		return nil
	}
	e.sent = append(e.sent, target)
	e.mu.Unlock()

	if err := e.send(protocol.TagSendInvite + target); err != nil {
		e.dropSent(target)
		return err
	}
	return nil
}

// Respond answers an invite from inviter. A confirm makes inviter the
// opponent; the inviter then hosts and the directory relays its address
// through OnHostAddress. Only one match may be pending, so a confirm while
// another opponent is bound returns ErrAlreadyMatched and keeps the invite.
func (e *Engine) Respond(inviter string, confirm bool) error {
	e.mu.Lock()
	if !lo.Contains(e.received, inviter) {
		e.mu.Unlock()
		return ErrNoInvite
	}
	if confirm && e.opponent != "" {
		e.mu.Unlock()
		return ErrAlreadyMatched
	}
	e.received = lo.Without(e.received, inviter)
	decision := protocol.TagDeny
	if confirm {
		decision = protocol.TagConfirm
		e.bindOpponentLocked(inviter)
		e.confirming = inviter
	}
	e.mu.Unlock()

	return e.send(protocol.TagRespondInvite + decision + inviter)
}

// CancelRequest withdraws an invite we sent. Canceling an invite that is
// not pending does nothing.
func (e *Engine) CancelRequest(target string) error {
	e.mu.Lock()
	if !lo.Contains(e.sent, target) {
		e.mu.Unlock()
		return nil
	}
	e.sent = lo.Without(e.sent, target)
	e.mu.Unlock()
	return e.send(protocol.TagCancelInvite + target)
}

// SentRequests returns the invites awaiting an answer.
func (e *Engine) SentRequests() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.sent...)
}

// ReceivedRequests returns the invites we have not answered yet.
func (e *Engine) ReceivedRequests() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.received...)
}

// Opponent returns the confirmed match partner, or "".
func (e *Engine) Opponent() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opponent
}

func (e *Engine) dropSent(name string) {
	e.mu.Lock()
	e.sent = lo.Without(e.sent, name)
	e.mu.Unlock()
}

// bindOpponentLocked starts a match with name.
func (e *Engine) bindOpponentLocked(name string) {
	e.dropOpponentLocked(nil)
	e.opponent = name
	e.match, e.endMatch = context.WithCancelCause(context.Background())
}

// dropOpponentLocked clears the match. cause wakes a host or joiner still
// waiting for its peer. It reports whether the match was still waiting.
func (e *Engine) dropOpponentLocked(cause error) bool {
	e.opponent, e.confirming = "", ""
	if e.endMatch == nil {
		return false
	}
	e.endMatch(cause)
	e.match, e.endMatch = nil, nil
	return true
}

// failOpponentLocked ends the match when name is the bound opponent.
func (e *Engine) failOpponentLocked(name string) bool {
	if name == "" || e.opponent != name {
		return false
	}
	return e.dropOpponentLocked(fmt.Errorf("%w: %s is gone", ErrMatchFailed, name))
}

// pendingMatch returns the opponent and the context that ends if the match
// fails before the peer connects. opponent is "" when no match is waiting.
func (e *Engine) pendingMatch() (opponent string, match context.Context) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.match == nil {
		return "", nil
	}
	return e.opponent, e.match
}

// matchConnected stops watching match once the peer connection is up, so
// directory notices no longer interrupt the game.
func (e *Engine) matchConnected(match context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.match == match {
		e.endMatch(nil)
		e.match, e.endMatch = nil, nil
	}
}

// handleMatch applies a [MATCH] notice from the directory.
func (e *Engine) handleMatch(payload string) {
	tag, name, ok := protocol.SplitTag(payload)
	if !ok {
		e.handleMatchStatus(payload)
		return
	}
	switch tag {
	case protocol.TagOnlineUpdate:
		e.handleOnlineUpdate(name)
	case protocol.TagSendInvite:
		e.mu.Lock()
		e.received = insertSorted(e.received, name)
		e.mu.Unlock()
		if e.OnInvite != nil {
			e.OnInvite(name)
		}
	case protocol.TagRespondInvite:
		decision, inviter, ok := protocol.SplitTag(name)
		if !ok || (decision != protocol.TagConfirm && decision != protocol.TagDeny) {
			slog.Warn("malformed invite answer", "payload", payload)
			return
		}
		confirmed := decision == protocol.TagConfirm
		e.mu.Lock()
		e.sent = lo.Without(e.sent, inviter)
		if confirmed {
			e.bindOpponentLocked(inviter)
		}
		e.mu.Unlock()
		if e.OnInviteAnswered != nil {
			e.OnInviteAnswered(inviter, confirmed)
		}
	case protocol.TagCancelInvite:
		e.mu.Lock()
		e.received = lo.Without(e.received, name)
		e.mu.Unlock()
		if e.OnInviteCanceled != nil {
			e.OnInviteCanceled(name)
		}
	default:
		slog.Warn("unexpected match notice", "payload", payload)
	}
}

func (e *Engine) handleMatchStatus(payload string) {
	switch {
	case strings.HasPrefix(payload, protocol.NoUser):
		name := strings.TrimPrefix(payload, protocol.NoUser)
		e.mu.Lock()
		e.sent = lo.Without(e.sent, name)
		e.received = lo.Without(e.received, name)
		e.failOpponentLocked(name)
		e.mu.Unlock()
		if e.OnNoUser != nil {
			e.OnNoUser(name)
		}
	case strings.HasPrefix(payload, protocol.Failure):
		name := strings.TrimPrefix(payload, protocol.Failure)
		e.mu.Lock()
		// A rejected confirm leaves the invite pending on the server.
		if e.confirming == name {
			e.received = insertSorted(e.received, name)
		}
		e.failOpponentLocked(name)
		e.mu.Unlock()
		if e.OnMatchFailure != nil {
			e.OnMatchFailure(name)
		}
	default:
		slog.Warn("unexpected match notice", "payload", payload)
	}
}

func (e *Engine) handleOnlineUpdate(payload string) {
	tag, name, ok := protocol.SplitTag(payload)
	if !ok || name == "" {
		slog.Warn("malformed presence update", "payload", payload)
		return
	}
	lost := false
	e.mu.Lock()
	switch tag {
	case protocol.TagNewUser:
		e.online = insertSorted(e.online, name)
	case protocol.TagRemoveUser:
		e.online = lo.Without(e.online, name)
		e.sent = lo.Without(e.sent, name)
		e.received = lo.Without(e.received, name)
		lost = e.failOpponentLocked(name)
	default:
		e.mu.Unlock()
		slog.Warn("unexpected presence update", "payload", payload)
		return
	}
	online := append([]string(nil), e.online...)
	e.mu.Unlock()

	if e.OnOnlineUpdate != nil {
		e.OnOnlineUpdate(online)
	}
	if lost && e.OnMatchFailure != nil {
		e.OnMatchFailure(name)
	}
}

// handleHost receives the host's relayed "<port><ip>" address.
func (e *Engine) handleHost(payload string) {
	addr, err := protocol.DecodeHostAddr(payload)
	if err != nil {
		slog.Warn("bad host address", "payload", payload, "err", err)
		return
	}
	e.mu.Lock()
	opponent := e.opponent
	e.confirming = ""
	e.mu.Unlock()
	slog.Info("host address received", "opponent", opponent, "addr", addr)
	if e.OnHostAddress != nil {
		e.OnHostAddress(opponent, addr)
	}
}
