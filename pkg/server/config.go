package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gomoku/pkg/datastore"
)

// LoadConfigFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("read server config: %w", err)
	}
	return ParseConfig(data, cfg)
}

// ParseConfig overlays YAML data onto cfg.
func ParseConfig(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse server config: %w", err)
	}
	return nil
}

// UserYAML represents a user in YAML export.
type UserYAML struct {
	Username  string `yaml:"username"`
	Wins      int    `yaml:"wins"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// UsersExport is the top-level YAML for user export.
type UsersExport struct {
	Users []UserYAML `yaml:"users"`
}

// ExportUsersYAML exports all registered users and their win counters as
// YAML. Password hashes are never exported.
func ExportUsersYAML(st datastore.UserReadProvider) ([]byte, error) {
	users, err := st.ListUsers()
	if err != nil {
		return nil, err
	}

	export := UsersExport{Users: make([]UserYAML, 0, len(users))}
	for _, u := range users {
		entry := UserYAML{Username: u.Username, Wins: u.Wins}
		if !u.CreatedAt.IsZero() {
			entry.CreatedAt = u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		export.Users = append(export.Users, entry)
	}
	return yaml.Marshal(&export)
}
