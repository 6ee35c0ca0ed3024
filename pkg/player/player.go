// Package player provides the three interchangeable game.Player variants:
// Local (a human behind an input collaborator), Automated (a built-in
// strategy) and Remote (a proxy for the opponent across a peer transport).
package player

import (
	"errors"
	"fmt"

	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// Kind selects a variant.
type Kind int

const (
	KindLocal Kind = iota
	KindAutomated
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindAutomated:
		return "automated"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

var ErrMissingField = errors.New("player: missing required field")

// Config carries the collaborators for one variant. Only the fields of the
// selected Kind are read.
type Config struct {
	Kind Kind

	// Local
	Input Input

	// Automated; nil selects RandomStrategy.
	Strategy Strategy

	// Remote
	Conn     *protocol.Conn
	Reporter Reporter
}

// New builds the variant named by cfg.Kind.
func New(cfg Config) (game.Player, error) {
	switch cfg.Kind {
	case KindLocal:
		if cfg.Input == nil {
			return nil, fmt.Errorf("local player input: %w", ErrMissingField)
		}
		return NewLocal(cfg.Input), nil
	case KindAutomated:
		return NewAutomated(cfg.Strategy), nil
	case KindRemote:
		if cfg.Conn == nil {
			return nil, fmt.Errorf("remote player conn: %w", ErrMissingField)
		}
		return NewRemoteHost(cfg.Conn, cfg.Reporter), nil
	default:
		return nil, fmt.Errorf("player: unknown kind %d", cfg.Kind)
	}
}
