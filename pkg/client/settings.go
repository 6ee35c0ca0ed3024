package client

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// SavedServer remembers a directory the user played on.
type SavedServer struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	LastUsed int64  `yaml:"last_used,omitempty"`
}

// Settings stores user preferences persisted as YAML next to the binary.
// Passwords are never stored.
type Settings struct {
	ServerAddr string        `yaml:"server_addr"`
	GamePort   int           `yaml:"game_port"`
	Servers    []SavedServer `yaml:"servers,omitempty"`
}

// DefaultSettings returns default settings.
func DefaultSettings() *Settings {
	return &Settings{
		ServerAddr: "127.0.0.1:9600",
		GamePort:   protocol.DefaultGamePort,
	}
}

// SettingsPath returns the default settings file next to the executable.
func SettingsPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "settings.yaml")
}

// LoadSettings loads settings from path or returns defaults.
func LoadSettings(path string) *Settings {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		slog.Error("parse settings", "path", path, "err", err)
		return DefaultSettings()
	}
	return s
}

// Save writes settings to path.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Remember records a successful login on addr, most recent first.
func (s *Settings) Remember(addr, username string, ts int64) {
	s.ServerAddr = addr
	s.Servers = lo.Reject(s.Servers, func(v SavedServer, _ int) bool {
		return v.Addr == addr
	})
	s.Servers = append(s.Servers, SavedServer{Addr: addr, Username: username, LastUsed: ts})
	sort.SliceStable(s.Servers, func(i, j int) bool {
		return s.Servers[i].LastUsed > s.Servers[j].LastUsed
	})
}

// FindServer returns the saved entry for addr, or nil.
func (s *Settings) FindServer(addr string) *SavedServer {
	v, ok := lo.Find(s.Servers, func(v SavedServer) bool { return v.Addr == addr })
	if !ok {
		return nil
	}
	return &v
}
