package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NicolasHaas/gomoku/pkg/crypto"
	"github.com/NicolasHaas/gomoku/pkg/datastore"
	"github.com/NicolasHaas/gomoku/pkg/model"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// DefaultMaxAnonAttempts bounds anonymous name draws per login.
const DefaultMaxAnonAttempts = 64

var (
	ErrAnonExhausted        = errors.New("server: no free anonymous name")
	ErrNoSession            = errors.New("server: unknown session")
	ErrAlreadyAuthenticated = errors.New("server: session already authenticated")
	ErrUnknownUser          = errors.New("server: unknown user")
)

// Registry is the directory of known users, the online set and the active
// sessions. Every operation takes the lock once and never writes to the
// network while holding it; callers send the returned notices afterwards.
type Registry struct {
	mu       sync.Mutex
	store    datastore.DataStore
	users    map[string]*model.User // directory, including online anonymous users
	sessions map[uint32]*Session
	online   map[string]uint32 // username -> session ID

	names   func() string
	maxAnon int
}

// notice is a line queued for delivery after the registry lock is released.
type notice struct {
	to   *Session
	line string
}

// NewRegistry loads the persisted directory from st.
func NewRegistry(st datastore.DataStore, names func() string, maxAnon int) (*Registry, error) {
	if maxAnon <= 0 {
		maxAnon = DefaultMaxAnonAttempts
	}
	users, err := st.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("server: load users: %w", err)
	}
	r := &Registry{
		store:    st,
		users:    make(map[string]*model.User, len(users)),
		sessions: make(map[uint32]*Session),
		online:   make(map[string]uint32),
		names:    names,
		maxAnon:  maxAnon,
	}
	for i := range users {
		u := users[i]
		u.Online = false
		r.users[u.Username] = &u
	}
	return r, nil
}

// Add creates an unauthenticated session for conn.
func (r *Registry) Add(parent context.Context, conn *protocol.Conn, limiter *rate.Limiter) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := randomSessionID()
	for r.sessions[id] != nil {
		id = randomSessionID()
	}
	sess := newSession(parent, id, conn, limiter)
	r.sessions[id] = sess
	return sess
}

// Get retrieves a session by ID.
func (r *Registry) Get(id uint32) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// DirectorySize returns the number of known users, online or not.
func (r *Registry) DirectorySize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// OnlineCount returns the number of authenticated sessions.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.online)
}

// Username returns the user bound to a session, or "".
func (r *Registry) Username(id uint32) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.sessions[id]; s != nil {
		return s.username
	}
	return ""
}

func (r *Registry) authSession(id uint32) (*Session, error) {
	sess := r.sessions[id]
	if sess == nil {
		return nil, ErrNoSession
	}
	if sess.username != "" {
		return nil, ErrAlreadyAuthenticated
	}
	return sess, nil
}

func (r *Registry) bind(sess *Session, u *model.User) {
	u.Online = true
	sess.username = u.Username
	r.online[u.Username] = sess.ID
}

// Register creates, persists and binds a new user.
func (r *Registry) Register(id uint32, username, password string) (model.AuthResult, error) {
	if model.ValidateUsername(username) != nil || model.ValidatePassword(password) != nil {
		return model.AuthInvalid, nil
	}
	// Hashing touches no shared state, so it runs outside the lock.
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sess, err := r.authSession(id)
	if err != nil {
		return 0, err
	}
	if _, exists := r.users[username]; exists {
		return model.AuthUsernameTaken, nil
	}
	u := &model.User{Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := r.store.CreateUser(*u); err != nil {
		if errors.Is(err, datastore.ErrUserExists) {
			return model.AuthUsernameTaken, nil
		}
		return 0, fmt.Errorf("server: register: %w", err)
	}
	r.users[username] = u
	r.bind(sess, u)
	return model.AuthSuccess, nil
}

// Authenticate binds an existing registered user. An online user is
// reported as AlreadyOnline whatever the password.
func (r *Registry) Authenticate(id uint32, username, password string) (model.AuthResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, err := r.authSession(id)
	if err != nil {
		return 0, err
	}
	u := r.users[username]
	if u == nil {
		return model.AuthUserNotFound, nil
	}
	if u.Online {
		return model.AuthAlreadyOnline, nil
	}
	if u.Anonymous() {
		return model.AuthUserNotFound, nil
	}
	ok, err := crypto.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return 0, fmt.Errorf("server: authenticate %q: %w", username, err)
	}
	if !ok {
		return model.AuthWrongPassword, nil
	}
	r.bind(sess, u)
	return model.AuthSuccess, nil
}

// AnonLogin binds a fresh color+animal user that is never persisted.
func (r *Registry) AnonLogin(id uint32) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, err := r.authSession(id)
	if err != nil {
		return "", err
	}
	for i := 0; i < r.maxAnon; i++ {
		name := r.names()
		if model.ValidateUsername(name) != nil {
			continue
		}
		if _, taken := r.users[name]; taken {
			continue
		}
		u := &model.User{Username: name, CreatedAt: time.Now().UTC()}
		r.users[name] = u
		r.bind(sess, u)
		return name, nil
	}
	return "", ErrAnonExhausted
}

func (r *Registry) lookupLocked(username string) *Session {
	id, ok := r.online[username]
	if !ok {
		return nil
	}
	return r.sessions[id]
}

// Lookup returns the online session bound to username, or nil.
func (r *Registry) Lookup(username string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(username)
}

// presence pairs an online session with its username.
type presence struct {
	sess *Session
	name string
}

// OnlineExcept snapshots every authenticated session other than id, sorted
// by username.
func (r *Registry) OnlineExcept(id uint32) []presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]presence, 0, len(r.online))
	for name, sid := range r.online {
		if sid == id {
			continue
		}
		if s := r.sessions[sid]; s != nil {
			out = append(out, presence{sess: s, name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// User returns a copy of a directory entry.
func (r *Registry) User(username string) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[username]
	if u == nil {
		return model.User{}, false
	}
	return *u, true
}

// RecordWin increments the winner's counter and persists it for registered
// users.
func (r *Registry) RecordWin(username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[username]
	if u == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUser, username)
	}
	u.Wins++
	if !u.Anonymous() {
		if err := r.store.SetWins(username, u.Wins); err != nil {
			return u.Wins, fmt.Errorf("server: record win: %w", err)
		}
	}
	return u.Wins, nil
}

// departure describes a removed session for the caller to announce.
type departure struct {
	username string
	notices  []notice
	others   []*Session
}

// Disconnect removes a session. Anonymous users leave the directory,
// registered users are marked offline. Invites still pending with the
// departing user are resolved and any peer binding pointing at it cleared.
func (r *Registry) Disconnect(id uint32) (departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.sessions[id]
	if sess == nil {
		return departure{}, false
	}
	delete(r.sessions, id)
	d := departure{username: sess.username}
	if sess.username == "" {
		return d, true
	}

	delete(r.online, sess.username)
	if u := r.users[sess.username]; u != nil {
		if u.Anonymous() {
			delete(r.users, sess.username)
		} else {
			u.Online = false
		}
	}

	for _, inviter := range sess.received {
		if is := r.lookupLocked(inviter); is != nil {
			is.sent = removeName(is.sent, sess.username)
			d.notices = append(d.notices, notice{is, protocol.TagMatch + protocol.TagRespondInvite + protocol.TagDeny + sess.username})
		}
	}
	for _, target := range sess.sent {
		if ts := r.lookupLocked(target); ts != nil {
			ts.received = removeName(ts.received, sess.username)
			d.notices = append(d.notices, notice{ts, protocol.TagMatch + protocol.TagCancelInvite + sess.username})
		}
	}
	sess.sent, sess.received = nil, nil

	// The opponent keeps peerName so a later [HOST] can name who left.
	if ps := r.sessions[sess.peer]; ps != nil && ps.peer == sess.ID {
		ps.peer, ps.inGame = 0, false
	}

	for _, sid := range r.online {
		if s := r.sessions[sid]; s != nil {
			d.others = append(d.others, s)
		}
	}
	return d, true
}

// Invites returns copies of a session's pending sent and received lists.
func (r *Registry) Invites(id uint32) (sent, received []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil {
		return nil, nil
	}
	return append([]string(nil), s.sent...), append([]string(nil), s.received...)
}

// Match returns a session's peer binding and in-game flag.
func (r *Registry) Match(id uint32) (peer uint32, inGame bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil {
		return 0, false
	}
	return s.peer, s.inGame
}

// All returns every connected session.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
