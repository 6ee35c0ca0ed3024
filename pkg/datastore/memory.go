package datastore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors the SQL store's validation and error handling.
type MemoryStore struct {
	mu sync.RWMutex

	now   func() time.Time
	users map[string]*model.User
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:   now,
		users: make(map[string]*model.User),
	}
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// CreateUser stores a copy of user.
func (s *MemoryStore) CreateUser(user model.User) error {
	if err := validateNewUser(user); err != nil {
		return fmt.Errorf("datastore: create user: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("datastore: create user %q: %w", user.Username, ErrUserExists)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.Online = false
	s.users[user.Username] = &user
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	copyUser := *u
	return &copyUser, nil
}

// SetWins overwrites the win counter of an existing user.
func (s *MemoryStore) SetWins(username string, wins int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("datastore: set wins %q: %w", username, ErrUserNotFound)
	}
	u.Wins = wins
	return nil
}

// ListUsers returns all users ordered by username.
func (s *MemoryStore) ListUsers() ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
