package player

import (
	"errors"
	"sync"

	"github.com/NicolasHaas/gomoku/pkg/game"
)

var ErrNotBound = errors.New("player: not bound to a game")

// Input is the external collaborator behind a Local player, typically a
// terminal or GUI. Calls must not block.
type Input interface {
	YourTurn(color game.Color)
	OpponentMoved(color game.Color, row, col int)
	GameOver(outcome game.Outcome)
}

// Local forwards engine callbacks to an Input and feeds the human's choices
// back through Move and Forfeit.
type Local struct {
	in Input

	mu    sync.Mutex
	color game.Color
	mover game.Mover
}

// NewLocal wraps in.
func NewLocal(in Input) *Local {
	return &Local{in: in}
}

func (l *Local) Bind(color game.Color, mover game.Mover) {
	l.mu.Lock()
	l.color, l.mover = color, mover
	l.mu.Unlock()
}

// Color returns the bound color.
func (l *Local) Color() game.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *Local) StartTurn() {
	l.in.YourTurn(l.Color())
}

func (l *Local) UpdateBoardView(color game.Color, row, col int) {
	l.in.OpponentMoved(color, row, col)
}

func (l *Local) EndGame(outcome game.Outcome) {
	l.in.GameOver(outcome)
}

// Move submits the human's stone.
func (l *Local) Move(row, col int) error {
	l.mu.Lock()
	color, mover := l.color, l.mover
	l.mu.Unlock()
	if mover == nil {
		return ErrNotBound
	}
	return mover.MakeMove(color, row, col)
}

// Forfeit skips the turn, as when an external turn clock expires.
func (l *Local) Forfeit() error {
	return l.Move(game.ForfeitRow, game.ForfeitCol)
}
