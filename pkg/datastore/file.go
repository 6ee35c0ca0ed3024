package datastore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/NicolasHaas/gomoku/pkg/model"
)

// FileStore is the append-only plain text directory: three lines per record
// (username, password hash, win count). A later record for a username
// supersedes earlier ones, so win updates are appended rather than rewritten.
type FileStore struct {
	mu    sync.Mutex
	f     *os.File
	users map[string]*model.User
}

// NewFileStore opens or creates the record file at path and loads it.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // path from server config
	if err != nil {
		return nil, fmt.Errorf("datastore: open users file: %w", err)
	}
	users, err := readRecords(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("datastore: load users file: %w", err)
	}
	return &FileStore{f: f, users: users}, nil
}

func readRecords(r io.Reader) (map[string]*model.User, error) {
	users := make(map[string]*model.User)
	sc := bufio.NewScanner(r)
	var rec []string
	line := 0
	for sc.Scan() {
		line++
		rec = append(rec, strings.TrimSuffix(sc.Text(), "\r"))
		if len(rec) < 3 {
			continue
		}
		wins, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad win count %q", line, rec[2])
		}
		u, ok := users[rec[0]]
		if !ok {
			u = &model.User{Username: rec[0]}
			users[rec[0]] = u
		}
		u.PasswordHash = rec[1]
		u.Wins = wins
		rec = rec[:0]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rec) != 0 {
		return nil, errors.New("truncated record at end of file")
	}
	return users, nil
}

func (s *FileStore) appendRecord(u *model.User) error {
	rec := u.Username + "\n" + u.PasswordHash + "\n" + strconv.Itoa(u.Wins) + "\n"
	if _, err := s.f.WriteString(rec); err != nil {
		return err
	}
	return s.f.Sync()
}

// CreateUser appends a new record.
func (s *FileStore) CreateUser(user model.User) error {
	if err := validateNewUser(user); err != nil {
		return fmt.Errorf("datastore: create user: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("datastore: create user %q: %w", user.Username, ErrUserExists)
	}
	u := &model.User{Username: user.Username, PasswordHash: user.PasswordHash, Wins: user.Wins}
	if err := s.appendRecord(u); err != nil {
		return fmt.Errorf("datastore: create user: %w", err)
	}
	s.users[u.Username] = u
	return nil
}

// GetUserByUsername returns the latest record for username.
func (s *FileStore) GetUserByUsername(username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	copyUser := *u
	return &copyUser, nil
}

// SetWins appends a superseding record with the new count.
func (s *FileStore) SetWins(username string, wins int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("datastore: set wins %q: %w", username, ErrUserNotFound)
	}
	updated := *u
	updated.Wins = wins
	if err := s.appendRecord(&updated); err != nil {
		return fmt.Errorf("datastore: set wins: %w", err)
	}
	*u = updated
	return nil
}

// ListUsers returns all users ordered by username. The file format has no
// creation time, so CreatedAt is left zero.
func (s *FileStore) ListUsers() ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Close closes the record file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
