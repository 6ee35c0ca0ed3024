package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gomoku/pkg/datastore"
	"github.com/NicolasHaas/gomoku/pkg/model"
)

func TestParseConfigOverlaysDefaults(t *testing.T) {
	cfg := DefaultConfig()
	data := []byte(`
listen_addr: ":7000"
store: postgres
db_path: "postgres://gomoku@db/gomoku"
presence_delay: 250ms
rate_limit: 5
export_users: true
`)
	if err := ParseConfig(data, &cfg); err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	want := DefaultConfig()
	want.ListenAddr = ":7000"
	want.Store = datastore.BackendPostgres
	want.DBPath = "postgres://gomoku@db/gomoku"
	want.PresenceDelay = 250 * time.Millisecond
	want.RateLimit = 5
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigRejectsBadYAML(t *testing.T) {
	cfg := DefaultConfig()
	if err := ParseConfig([]byte("rate_limit: [fast"), &cfg); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("metrics_addr: \"\"\nmax_anon_attempts: 8\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := LoadConfigFile(path, &cfg); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.MetricsAddr != "" || cfg.MaxAnonAttempts != 8 {
		t.Errorf("got metrics_addr=%q max_anon_attempts=%d", cfg.MetricsAddr, cfg.MaxAnonAttempts)
	}
	if err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestExportUsersYAML(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := datastore.NewMemoryWithClock(func() time.Time { return created })
	for _, name := range []string{"bob", "alice"} {
		if err := st.CreateUser(model.User{Username: name, PasswordHash: "hash-" + name}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	if err := st.SetWins("alice", 3); err != nil {
		t.Fatalf("SetWins: %v", err)
	}

	data, err := ExportUsersYAML(st)
	if err != nil {
		t.Fatalf("ExportUsersYAML: %v", err)
	}
	var got UsersExport
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	want := UsersExport{Users: []UserYAML{
		{Username: "alice", Wins: 3, CreatedAt: "2026-03-01T12:00:00Z"},
		{Username: "bob", Wins: 0, CreatedAt: "2026-03-01T12:00:00Z"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}
