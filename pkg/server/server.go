// Package server implements the Gomoku directory server: authentication,
// presence, matchmaking and the relay of the peer-to-peer handoff address.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/datastore"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// Config holds server configuration. Fields carry yaml tags so a config file
// can override the defaults.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`  // TCP bind address for clients (e.g. ":9600")
	MetricsAddr string `yaml:"metrics_addr"` // HTTP bind address for /metrics (empty = disabled)

	Store  string `yaml:"store"`   // sqlite, postgres, file or memory
	DBPath string `yaml:"db_path"` // SQLite path, users file path or PostgreSQL DSN

	ColorsFile  string `yaml:"colors_file"`  // newline-delimited colors (empty = built-in)
	AnimalsFile string `yaml:"animals_file"` // newline-delimited animals (empty = built-in)

	PresenceDelay      time.Duration `yaml:"presence_delay"`       // pause between auth reply and online list
	MaxLineLength      int           `yaml:"max_line_length"`      // inbound line limit in bytes
	RateLimit          float64       `yaml:"rate_limit"`           // inbound lines per second per session
	RateBurst          int           `yaml:"rate_burst"`           // burst allowance for RateLimit
	MaxAnonAttempts    int           `yaml:"max_anon_attempts"`    // name draws before giving up
	MetricsLogInterval time.Duration `yaml:"metrics_log_interval"` // 0 disables the periodic summary

	// CLI-only actions (run and exit)
	ExportUsers bool `yaml:"-"` // export all users as YAML and exit
}

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and will Close() it on shutdown.
type Dependencies struct {
	Store datastore.DataStore
	Names func() string // anonymous name generator
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":9600",
		MetricsAddr:        ":9602",
		Store:              datastore.BackendSQLite,
		DBPath:             "gomoku.db",
		PresenceDelay:      100 * time.Millisecond,
		MaxLineLength:      protocol.MaxLineLength,
		RateLimit:          20,
		RateBurst:          40,
		MaxAnonAttempts:    DefaultMaxAnonAttempts,
		MetricsLogInterval: 60 * time.Second,
	}
}

// Server is the directory server.
type Server struct {
	cfg      Config
	registry *Registry
	metrics  *Metrics
	store    datastore.DataStore

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup // open client connections

	ctx    context.Context
	cancel context.CancelFunc
}

// New loads the user directory and creates a Server.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("server: missing store dependency")
	}
	if deps.Names == nil {
		return nil, fmt.Errorf("server: missing name generator")
	}
	reg, err := NewRegistry(deps.Store, deps.Names, cfg.MaxAnonAttempts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: reg,
		metrics:  NewMetrics(),
		store:    deps.Store,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
