package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

var ErrPeerGone = errors.New("player: peer closed the game transport")

// Reporter receives the final outcome from the local side's point of view so
// the owning session can keep the win count.
type Reporter interface {
	ReportOutcome(outcome game.Outcome) error
}

// Mode is the side of the peer transport a Remote sits on.
type Mode int

const (
	// ModeHost: the Remote stands in for the joining opponent inside the
	// host's authoritative engine.
	ModeHost Mode = iota
	// ModeJoin: the Remote mirrors the host's engine and drives a local
	// player; no engine runs on this side.
	ModeJoin
)

func (m Mode) String() string {
	if m == ModeJoin {
		return "join"
	}
	return "host"
}

// Remote multiplexes one peer transport across turn, move, board and game
// over messages.
type Remote struct {
	conn     *protocol.Conn
	mode     Mode
	reporter Reporter
	local    game.Player

	mu       sync.Mutex
	color    game.Color
	mover    game.Mover
	finished bool
	outcome  game.Outcome

	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// NewRemoteHost builds the proxy the host binds into its engine.
func NewRemoteHost(conn *protocol.Conn, reporter Reporter) *Remote {
	return &Remote{
		conn:     conn,
		mode:     ModeHost,
		reporter: reporter,
		done:     make(chan struct{}),
		log:      slog.With("peer", conn.RemoteIP(), "mode", ModeHost.String()),
	}
}

// NewRemoteJoin builds the joiner's proxy and binds local to it as player 2.
func NewRemoteJoin(conn *protocol.Conn, local game.Player, reporter Reporter) *Remote {
	r := &Remote{
		conn:     conn,
		mode:     ModeJoin,
		reporter: reporter,
		local:    local,
		done:     make(chan struct{}),
		log:      slog.With("peer", conn.RemoteIP(), "mode", ModeJoin.String()),
	}
	local.Bind(game.Player2, r)
	return r
}

// Done is closed after the outcome was reported and the transport closed.
func (r *Remote) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the local side's result once Done is closed.
func (r *Remote) Outcome() (game.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.finished
}

// ---- game.Player (host mode) ----

func (r *Remote) Bind(color game.Color, mover game.Mover) {
	r.mu.Lock()
	r.color, r.mover = color, mover
	r.mu.Unlock()
}

func (r *Remote) StartTurn() {
	r.send(protocol.TagGame + protocol.TagTurn)
}

func (r *Remote) UpdateBoardView(color game.Color, row, col int) {
	r.send(protocol.EncodeBoard(int(color), row, col))
}

func (r *Remote) EndGame(outcome game.Outcome) {
	r.send(protocol.TagGame + protocol.TagGameOver + outcomeWord(outcome))
	r.finish(outcome.Invert())
}

// ---- game.Mover (join mode) ----

// MakeMove forwards the local player's move to the host.
func (r *Remote) MakeMove(_ game.Color, row, col int) error {
	if err := r.conn.WriteLine(protocol.EncodeMove(row, col)); err != nil {
		r.abort(err)
		return err
	}
	return nil
}

func (r *Remote) send(line string) {
	if err := r.conn.WriteLine(line); err != nil {
		r.abort(err)
	}
}

func (r *Remote) abort(err error) {
	r.log.Warn("peer write failed", "err", err)
	_ = r.conn.Close()
}

// finish reports the outcome and then tears the transport down.
func (r *Remote) finish(outcome game.Outcome) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.outcome = outcome
	r.mu.Unlock()

	r.log.Info("game over", "outcome", outcome)
	if r.reporter != nil {
		if err := r.reporter.ReportOutcome(outcome); err != nil {
			r.log.Warn("report outcome failed", "err", err)
		}
	}
	r.closeOnce.Do(func() {
		_ = r.conn.Close()
		close(r.done)
	})
}

// Run reads peer messages until the game ends. It returns nil after a normal
// game over and ErrPeerGone if the transport drops first. Cancelling ctx
// closes the transport.
func (r *Remote) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	for {
		line, err := r.conn.ReadLine()
		if err != nil {
			if _, finished := r.Outcome(); finished {
				return nil
			}
			r.closeOnce.Do(func() {
				_ = r.conn.Close()
				close(r.done)
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrPeerGone, err)
		}
		r.handleLine(line)
	}
}

func (r *Remote) handleLine(line string) {
	tag, rest, ok := protocol.SplitTag(line)
	if !ok || tag != protocol.TagGame {
		r.log.Warn("unexpected peer line", "line", line)
		return
	}
	kind, payload, ok := protocol.SplitTag(rest)
	if !ok {
		r.log.Warn("unexpected peer line", "line", line)
		return
	}
	if r.mode == ModeHost {
		r.handleHostLine(kind, payload)
		return
	}
	r.handleJoinLine(kind, payload)
}

func (r *Remote) handleHostLine(kind, payload string) {
	if kind != protocol.TagMove {
		r.log.Warn("unexpected peer message", "kind", kind)
		return
	}
	row, col, err := protocol.DecodeMove(payload)
	if err != nil {
		r.log.Warn("bad move from peer", "err", err)
		return
	}
	r.mu.Lock()
	color, mover := r.color, r.mover
	r.mu.Unlock()
	if mover == nil {
		r.log.Warn("move before bind")
		return
	}
	if err := mover.MakeMove(color, row, col); err != nil {
		r.log.Warn("peer move rejected", "row", row, "col", col, "err", err)
	}
}

func (r *Remote) handleJoinLine(kind, payload string) {
	switch kind {
	case protocol.TagTurn:
		r.local.StartTurn()
	case protocol.TagBoard:
		color, row, col, err := protocol.DecodeBoard(payload)
		if err != nil {
			r.log.Warn("bad board update from peer", "err", err)
			return
		}
		r.local.UpdateBoardView(game.Color(color), row, col)
	case protocol.TagGameOver:
		outcome, err := parseOutcome(payload)
		if err != nil {
			r.log.Warn("bad game over from peer", "err", err)
			return
		}
		r.local.EndGame(outcome)
		r.finish(outcome)
	default:
		r.log.Warn("unexpected peer message", "kind", kind)
	}
}

func outcomeWord(o game.Outcome) string {
	switch o {
	case game.Won:
		return protocol.Success
	case game.Lost:
		return protocol.Failure
	default:
		return protocol.Tie
	}
}

func parseOutcome(word string) (game.Outcome, error) {
	switch word {
	case protocol.Success:
		return game.Won, nil
	case protocol.Failure:
		return game.Lost, nil
	case protocol.Tie:
		return game.Tied, nil
	default:
		return 0, fmt.Errorf("outcome %q: %w", word, protocol.ErrMalformed)
	}
}
