package datastore_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/datastore"
	"github.com/NicolasHaas/gomoku/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func NewTestSqlConn(t *testing.T) (*datastore.SQLStore, error) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	st, err := datastore.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("store_test: failed to open db: %w", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			fmt.Printf("Error closing database: %v\n", err)
		}
	})

	return st, nil
}

// withStores runs fn against every backend that needs no external service.
func withStores(t *testing.T, fn func(t *testing.T, st datastore.DataStore)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		st, err := NewTestSqlConn(t)
		if err != nil {
			t.Fatalf("failed to open test connection: %v", err)
		}
		fn(t, st)
	})
	t.Run("file", func(t *testing.T) {
		st, err := datastore.NewFileStore(filepath.Join(t.TempDir(), "users.txt"))
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		fn(t, st)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, datastore.NewMemory())
	})
}

func TestCreateUser(t *testing.T) {
	type tcase struct {
		user      model.User
		expectErr error
	}

	tcases := map[string]tcase{
		"minimum_required_fields": {
			user: model.User{Username: "johndoe", PasswordHash: "aa$bb"},
		},
		"with_wins": {
			user: model.User{Username: "janedoe", PasswordHash: "aa$bb", Wins: 3},
		},
		"injection_username": {
			user:      model.User{Username: "' OR '1'='1", PasswordHash: "aa$bb"},
			expectErr: model.ErrUsernameInvalidChars,
		},
		"empty_username": {
			user:      model.User{Username: "", PasswordHash: "aa$bb"},
			expectErr: model.ErrUsernameEmpty,
		},
		"anonymous": {
			user:      model.User{Username: "RedFox"},
			expectErr: datastore.ErrAnonymous,
		},
	}

	withStores(t, func(t *testing.T, st datastore.DataStore) {
		for name, tc := range tcases {
			t.Run(name, func(t *testing.T) {
				err := st.CreateUser(tc.user)
				if tc.expectErr != nil {
					if !errors.Is(err, tc.expectErr) {
						t.Fatalf("CreateUser: err = %v, want %v", err, tc.expectErr)
					}
					return
				}
				if err != nil {
					t.Fatalf("CreateUser: unexpected error: %v", err)
				}

				got, err := st.GetUserByUsername(tc.user.Username)
				if err != nil {
					t.Fatalf("GetUserByUsername: unexpected error: %v", err)
				}
				if diff := cmp.Diff(&tc.user, got, cmpopts.IgnoreFields(model.User{}, "CreatedAt")); diff != "" {
					t.Errorf("CreateUser mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})
}

func TestCreateUserDuplicate(t *testing.T) {
	withStores(t, func(t *testing.T, st datastore.DataStore) {
		if err := st.CreateUser(model.User{Username: "alice", PasswordHash: "aa$bb"}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		err := st.CreateUser(model.User{Username: "alice", PasswordHash: "cc$dd"})
		if !errors.Is(err, datastore.ErrUserExists) {
			t.Fatalf("CreateUser duplicate: err = %v, want ErrUserExists", err)
		}
	})
}

func TestGetUserByUsernameMissing(t *testing.T) {
	withStores(t, func(t *testing.T, st datastore.DataStore) {
		got, err := st.GetUserByUsername("nobody")
		if err != nil || got != nil {
			t.Fatalf("GetUserByUsername(nobody) = (%v, %v), want (nil, nil)", got, err)
		}
	})
}

func TestSetWins(t *testing.T) {
	withStores(t, func(t *testing.T, st datastore.DataStore) {
		if err := st.CreateUser(model.User{Username: "alice", PasswordHash: "aa$bb"}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if err := st.SetWins("alice", 2); err != nil {
			t.Fatalf("SetWins: %v", err)
		}
		got, err := st.GetUserByUsername("alice")
		if err != nil {
			t.Fatal(err)
		}
		if got.Wins != 2 {
			t.Errorf("Wins = %d, want 2", got.Wins)
		}
		if err := st.SetWins("nobody", 1); !errors.Is(err, datastore.ErrUserNotFound) {
			t.Errorf("SetWins(nobody) err = %v, want ErrUserNotFound", err)
		}
	})
}

func TestListUsers(t *testing.T) {
	withStores(t, func(t *testing.T, st datastore.DataStore) {
		for _, name := range []string{"carol", "alice", "bob"} {
			if err := st.CreateUser(model.User{Username: name, PasswordHash: "aa$bb"}); err != nil {
				t.Fatalf("CreateUser(%s): %v", name, err)
			}
		}
		users, err := st.ListUsers()
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		var names []string
		for _, u := range users {
			names = append(names, u.Username)
		}
		if diff := cmp.Diff([]string{"alice", "bob", "carol"}, names); diff != "" {
			t.Errorf("ListUsers mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSQLiteCreatedAtRoundTrip(t *testing.T) {
	st, err := NewTestSqlConn(t)
	if err != nil {
		t.Fatalf("failed to open test connection: %v", err)
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := st.CreateUser(model.User{Username: "alice", PasswordHash: "aa$bb", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetUserByUsername("alice")
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

func TestSQLiteReopenKeepsUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	st, err := datastore.NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.CreateUser(model.User{Username: "alice", PasswordHash: "aa$bb", Wins: 4}); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	st, err = datastore.NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	got, err := st.GetUserByUsername("alice")
	if err != nil || got == nil || got.Wins != 4 {
		t.Fatalf("after reopen GetUserByUsername = (%+v, %v)", got, err)
	}
}

func TestFileStoreAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	st, err := datastore.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.CreateUser(model.User{Username: "alice", PasswordHash: "aa$bb"}); err != nil {
		t.Fatal(err)
	}
	if err := st.SetWins("alice", 1); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	raw, err := os.ReadFile(path) //nolint:gosec // test temp dir
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("alice\naa$bb\n0\nalice\naa$bb\n1\n", string(raw)); diff != "" {
		t.Errorf("file contents mismatch (-want +got):\n%s", diff)
	}

	st, err = datastore.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	got, err := st.GetUserByUsername("alice")
	if err != nil || got == nil || got.Wins != 1 {
		t.Fatalf("latest record should win, got (%+v, %v)", got, err)
	}
}

func TestFileStoreTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte("alice\naa$bb\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := datastore.NewFileStore(path); err == nil {
		t.Fatal("NewFileStore should reject a truncated record")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := datastore.Open("mongo", ""); err == nil {
		t.Fatal("Open(mongo) should fail")
	}
	st, err := datastore.Open("memory", "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	_ = st.Close()
}
