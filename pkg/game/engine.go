package game

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotStarted     = errors.New("game: not started")
	ErrAlreadyStarted = errors.New("game: already started")
	ErrGameOver       = errors.New("game: game is over")
	ErrOutOfTurn      = errors.New("game: not this player's turn")
	ErrOutOfBounds    = errors.New("game: coordinates out of bounds")
)

// State is the engine's turn state.
type State int

const (
	NotStarted State = iota
	Player1Turn
	Player2Turn
	Terminal
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Player1Turn:
		return "player1_turn"
	case Player2Turn:
		return "player2_turn"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

func turnState(c Color) State {
	if c == Player1 {
		return Player1Turn
	}
	return Player2Turn
}

// Engine is the authoritative game state for one match. Players are called
// without the engine lock held, so they may submit their next move
// synchronously.
type Engine struct {
	mu      sync.Mutex
	id      uuid.UUID
	board   Board
	empty   int
	players [2]Player
	state   State
	winner  Color
	moves   int

	done chan struct{}
	log  *slog.Logger
}

// New binds p1 and p2 to a fresh engine.
func New(p1, p2 Player) *Engine {
	e := &Engine{
		id:      uuid.New(),
		players: [2]Player{p1, p2},
		done:    make(chan struct{}),
	}
	e.log = slog.With("match", e.id.String())
	p1.Bind(Player1, e)
	p2.Bind(Player2, e)
	return e
}

// ID identifies the match in logs.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

func (e *Engine) player(c Color) Player {
	return e.players[c-1]
}

// Start clears the grid and hands the first turn to player 1.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state != NotStarted {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.board = Board{}
	e.empty = Size * Size
	e.state = Player1Turn
	e.mu.Unlock()

	e.log.Info("game started")
	e.player(Player1).StartTurn()
	return nil
}

// MakeMove applies a move for color. Occupancy is not re-validated; callers
// only submit empty cells. A negative coordinate forfeits the turn.
func (e *Engine) MakeMove(color Color, row, col int) error {
	e.mu.Lock()
	switch {
	case e.state == Terminal:
		e.mu.Unlock()
		return ErrGameOver
	case e.state == NotStarted:
		e.mu.Unlock()
		return ErrNotStarted
	case turnState(color) != e.state || !color.Valid():
		e.mu.Unlock()
		return ErrOutOfTurn
	case row >= Size || col >= Size:
		e.mu.Unlock()
		return ErrOutOfBounds
	}

	placed := !IsForfeit(row, col)
	if placed {
		if e.board[row][col] == Empty {
			e.empty--
		}
		e.board[row][col] = color
	}
	e.moves++

	// A full grid ends in a tie before the placed stone is evaluated.
	if e.empty == 0 {
		e.state = Terminal
		e.winner = Empty
		e.mu.Unlock()
		e.log.Info("game tied", "moves", e.moves)
		e.player(Player1).EndGame(Tied)
		e.player(Player2).EndGame(Tied)
		close(e.done)
		return nil
	}

	if placed {
		if won, axis := e.board.CheckWin(row, col); won {
			e.state = Terminal
			e.winner = color
			e.mu.Unlock()
			e.log.Info("game won", "winner", color, "axis", axis, "row", row, "col", col)
			e.player(color.Opponent()).EndGame(Lost)
			e.player(color).EndGame(Won)
			close(e.done)
			return nil
		}
	}

	next := color.Opponent()
	e.state = turnState(next)
	e.mu.Unlock()

	if placed {
		e.player(next).UpdateBoardView(color, row, col)
	} else {
		e.log.Debug("turn forfeited", "player", color)
	}
	e.player(next).StartTurn()
	return nil
}

// State returns the current turn state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Winner returns the winning color, or Empty for a tie or unfinished game.
func (e *Engine) Winner() Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// Board returns a copy of the grid.
func (e *Engine) Board() Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board
}

// Done is closed once the game is terminal and both players were notified.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
