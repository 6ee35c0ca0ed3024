package datastore

import (
	"errors"

	"github.com/NicolasHaas/gomoku/pkg/model"
)

var (
	ErrUserExists   = errors.New("datastore: user already exists")
	ErrUserNotFound = errors.New("datastore: user not found")
	ErrAnonymous    = errors.New("datastore: anonymous users are not persisted")
)

// DataStore defines the persistence interface for registered users.
// Implementations: SQL (SQLite or PostgreSQL), the append-only flat file,
// and an in-memory store for tests.
type DataStore interface {
	UserReadProvider
	UserWriteProvider

	Close() error
}

// Compile-time checks.
var (
	_ DataStore = (*SQLStore)(nil)
	_ DataStore = (*FileStore)(nil)
	_ DataStore = (*MemoryStore)(nil)
)

type UserReadProvider interface {
	// GetUserByUsername returns (nil, nil) if the user does not exist.
	GetUserByUsername(username string) (*model.User, error)
	ListUsers() ([]model.User, error)
}

type UserWriteProvider interface {
	// CreateUser persists a registered user. The user must carry a password hash.
	CreateUser(user model.User) error
	// SetWins overwrites the stored win counter.
	SetWins(username string, wins int) error
}

func validateNewUser(user model.User) error {
	if err := model.ValidateUsername(user.Username); err != nil {
		return err
	}
	if user.Anonymous() {
		return ErrAnonymous
	}
	return nil
}
