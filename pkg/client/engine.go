package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/NicolasHaas/gomoku/pkg/model"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// State represents the client's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected     // transport up, not logged in
	StateAuthenticated // bound to a directory user
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	ErrNotConnected     = errors.New("client: not connected")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrAuthFailed       = errors.New("client: authentication failed")
	ErrNoInvite         = errors.New("client: no pending invite from user")
	ErrNoOpponent       = errors.New("client: no confirmed opponent")
	ErrAlreadyMatched   = errors.New("client: a match is already pending")
	ErrMatchFailed      = errors.New("client: match failed")
)

// ServerError is an [ERROR] reply from the directory.
type ServerError struct {
	Kind string
}

func (e *ServerError) Error() string {
	return "server: " + e.Kind
}

// AuthReply is the directory's answer to a register, login or anonymous
// login request.
type AuthReply struct {
	Result   model.AuthResult
	Username string // set on success
}

type authResult struct {
	reply AuthReply
	err   error
}

// Engine is the client engine that wires together the directory
// connection, matchmaking state and game handoff.
//
// Callbacks run on the receive goroutine and must not block; start a game
// from OnInviteAnswered or OnHostAddress in a new goroutine.
type Engine struct {
	mu sync.RWMutex

	state    State
	username string
	online   []string
	sent     []string // invites we sent, awaiting an answer
	received []string // invites we received, not yet answered
	opponent string   // confirmed match partner until the game ends
	// confirming is the inviter we confirmed until its host address arrives.
	confirming string
	// match is canceled when the opponent is lost before the peer
	// connection is made. Nil once the game is connected.
	match    context.Context
	endMatch context.CancelCauseFunc

	control  *ControlClient
	authMu   sync.Mutex
	authWait chan authResult

	// Callbacks for UI updates
	OnStateChange    func(state State)
	OnOnlineUpdate   func(online []string)
	OnInvite         func(from string)
	OnInviteAnswered func(from string, confirmed bool)
	OnInviteCanceled func(from string)
	OnMatchFailure   func(name string) // confirm rejected, inviter busy or gone
	OnNoUser         func(name string)
	OnHostAddress    func(opponent, addr string)
	OnError          func(err error)
	OnDisconnect     func(reason string)
}

// NewEngine creates a new client engine.
func NewEngine() *Engine {
	return &Engine{state: StateDisconnected}
}

// Connect dials the directory server and starts receiving.
func (e *Engine) Connect(ctx context.Context, addr string) error {
	e.mu.Lock()
	if e.state != StateDisconnected {
		e.mu.Unlock()
		return ErrAlreadyConnected
	}
	e.state = StateConnecting
	e.mu.Unlock()
	e.notifyStateChange(StateConnecting)

	ctrl, err := DialControl(ctx, addr)
	if err != nil {
		e.setState(StateDisconnected)
		return err
	}

	e.mu.Lock()
	e.control = ctrl
	e.state = StateConnected
	e.mu.Unlock()

	ctrl.SetLineHandler(e.handleLine)
	ctrl.StartReceiving()
	e.notifyStateChange(StateConnected)
	slog.Info("connected to directory", "addr", addr)

	// Monitor for disconnect
	go func() {
		<-ctrl.Done()
		e.handleDisconnect(ctrl, "connection lost")
	}()
	return nil
}

// Register creates an account and logs in.
func (e *Engine) Register(ctx context.Context, username, password string) (AuthReply, error) {
	return e.authenticate(ctx, protocol.TagRegister+protocol.EncodeCredentials(username, password))
}

// Login logs in to an existing account.
func (e *Engine) Login(ctx context.Context, username, password string) (AuthReply, error) {
	return e.authenticate(ctx, protocol.TagLogin+protocol.EncodeCredentials(username, password))
}

// Anon logs in under a generated color+animal name.
func (e *Engine) Anon(ctx context.Context) (AuthReply, error) {
	return e.authenticate(ctx, protocol.TagAnon)
}

// authenticate sends an auth request and waits for its reply.
func (e *Engine) authenticate(ctx context.Context, line string) (AuthReply, error) {
	e.authMu.Lock()
	defer e.authMu.Unlock()

	wait := make(chan authResult, 1)
	e.mu.Lock()
	ctrl := e.control
	if ctrl == nil {
		e.mu.Unlock()
		return AuthReply{}, ErrNotConnected
	}
	e.authWait = wait
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.authWait == wait {
			e.authWait = nil
		}
		e.mu.Unlock()
	}()

	if err := ctrl.Send(line); err != nil {
		return AuthReply{}, fmt.Errorf("client: send auth: %w", err)
	}
	select {
	case res := <-wait:
		return res.reply, res.err
	case <-ctrl.Done():
		return AuthReply{}, ErrNotConnected
	case <-ctx.Done():
		return AuthReply{}, ctx.Err()
	}
}

// resolveAuth hands an auth outcome to a waiting caller. It reports false
// when no request is in flight.
func (e *Engine) resolveAuth(res authResult) bool {
	e.mu.Lock()
	wait := e.authWait
	e.authWait = nil
	e.mu.Unlock()
	if wait == nil {
		return false
	}
	wait <- res
	return true
}

// parseAuthReply maps an [AUTH] payload to a result.
func parseAuthReply(payload string) (AuthReply, error) {
	switch {
	case strings.HasPrefix(payload, protocol.Success):
		name := strings.TrimPrefix(payload, protocol.Success)
		if name == "" {
			return AuthReply{}, fmt.Errorf("auth reply %q: %w", payload, protocol.ErrMalformed)
		}
		return AuthReply{Result: model.AuthSuccess, Username: name}, nil
	case payload == protocol.NoUser:
		return AuthReply{Result: model.AuthUserNotFound}, nil
	case payload == protocol.BadPass:
		return AuthReply{Result: model.AuthWrongPassword}, nil
	case payload == protocol.UserTaken:
		return AuthReply{Result: model.AuthUsernameTaken}, nil
	case payload == protocol.TagOnlineUpdate:
		return AuthReply{Result: model.AuthAlreadyOnline}, nil
	case payload == protocol.Failure:
		return AuthReply{}, ErrAuthFailed
	default:
		return AuthReply{}, fmt.Errorf("auth reply %q: %w", payload, protocol.ErrMalformed)
	}
}

// handleLine dispatches a directory line to the appropriate handler.
func (e *Engine) handleLine(line string) {
	tag, payload, ok := protocol.SplitTag(line)
	if !ok {
		slog.Warn("unexpected directory line", "line", line)
		return
	}
	switch tag {
	case protocol.TagAuth:
		e.handleAuthReply(payload)
	case protocol.TagMatch:
		e.handleMatch(payload)
	case protocol.TagHost:
		e.handleHost(payload)
	case protocol.TagError:
		err := &ServerError{Kind: payload}
		slog.Warn("directory error", "kind", payload)
		if e.resolveAuth(authResult{err: err}) {
			return
		}
		e.notifyError(err)
	default:
		slog.Warn("unexpected directory tag", "tag", tag)
	}
}

func (e *Engine) handleAuthReply(payload string) {
	reply, err := parseAuthReply(payload)
	if err == nil && reply.Result == model.AuthSuccess {
		e.mu.Lock()
		e.username = reply.Username
		e.state = StateAuthenticated
		e.mu.Unlock()
		slog.Info("authenticated", "user", reply.Username)
		e.notifyStateChange(StateAuthenticated)
	}
	if !e.resolveAuth(authResult{reply: reply, err: err}) {
		slog.Warn("unsolicited auth reply", "payload", payload)
	}
}

// Disconnect resolves every pending invite, tells the server goodbye and
// closes the connection.
func (e *Engine) Disconnect() {
	e.mu.RLock()
	ctrl := e.control
	received := append([]string(nil), e.received...)
	sent := append([]string(nil), e.sent...)
	e.mu.RUnlock()
	if ctrl == nil {
		return
	}

	for _, inviter := range received {
		_ = ctrl.Send(protocol.TagRespondInvite + protocol.TagDeny + inviter)
	}
	for _, target := range sent {
		_ = ctrl.Send(protocol.TagCancelInvite + target)
	}
	_ = ctrl.Send(protocol.TagDisconnect)
	e.handleDisconnect(ctrl, "user disconnected")
}

// GetState returns the current connection state.
func (e *Engine) GetState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// GetUsername returns the logged in username, or "".
func (e *Engine) GetUsername() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.username
}

// Online returns the other online users, sorted.
func (e *Engine) Online() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.online...)
}

func (e *Engine) send(line string) error {
	e.mu.RLock()
	ctrl := e.control
	e.mu.RUnlock()
	if ctrl == nil {
		return ErrNotConnected
	}
	return ctrl.Send(line)
}

func (e *Engine) handleDisconnect(ctrl *ControlClient, reason string) {
	e.mu.Lock()
	if e.control != ctrl || e.state == StateDisconnected {
		e.mu.Unlock()
		return
	}
	e.state = StateDisconnected
	e.control = nil
	e.username = ""
	e.online, e.sent, e.received = nil, nil, nil
	e.dropOpponentLocked(ErrNotConnected)
	e.mu.Unlock()

	_ = ctrl.Close()

	slog.Info("disconnected", "reason", reason)
	e.notifyStateChange(StateDisconnected)
	if e.OnDisconnect != nil {
		e.OnDisconnect(reason)
	}
}

func (e *Engine) setState(state State) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	e.notifyStateChange(state)
}

func (e *Engine) notifyStateChange(state State) {
	if e.OnStateChange != nil {
		e.OnStateChange(state)
	}
}

func (e *Engine) notifyError(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

func insertSorted(list []string, name string) []string {
	if lo.Contains(list, name) {
		return list
	}
	list = append(list, name)
	sort.Strings(list)
	return list
}
