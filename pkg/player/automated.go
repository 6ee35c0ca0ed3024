package player

import (
	"log/slog"
	"math/rand/v2"

	"github.com/NicolasHaas/gomoku/pkg/game"
)

// Strategy picks a move on the automated player's own board mirror.
// Returning (game.ForfeitRow, game.ForfeitCol) skips the turn.
type Strategy interface {
	Choose(board *game.Board, color game.Color) (row, col int)
}

// RandomStrategy picks a uniformly random empty cell.
type RandomStrategy struct {
	Rand *rand.Rand // nil uses the global source
}

func (s RandomStrategy) Choose(board *game.Board, _ game.Color) (int, int) {
	empties := board.Empties()
	if len(empties) == 0 {
		return game.ForfeitRow, game.ForfeitCol
	}
	var i int
	if s.Rand != nil {
		i = s.Rand.IntN(len(empties))
	} else {
		i = rand.IntN(len(empties))
	}
	return empties[i][0], empties[i][1]
}

// Automated computes its moves internally and keeps its own copy of the
// board, updated from its own moves and the opponent's broadcasts.
type Automated struct {
	strategy Strategy
	board    game.Board
	color    game.Color
	mover    game.Mover
	result   chan game.Outcome
}

// NewAutomated builds a bot. A nil strategy selects RandomStrategy.
func NewAutomated(strategy Strategy) *Automated {
	if strategy == nil {
		strategy = RandomStrategy{}
	}
	return &Automated{strategy: strategy, result: make(chan game.Outcome, 1)}
}

func (a *Automated) Bind(color game.Color, mover game.Mover) {
	a.color, a.mover = color, mover
	a.board = game.Board{}
}

func (a *Automated) StartTurn() {
	row, col := a.strategy.Choose(&a.board, a.color)
	if !game.IsForfeit(row, col) && game.InBounds(row, col) {
		a.board[row][col] = a.color
	}
	if err := a.mover.MakeMove(a.color, row, col); err != nil {
		slog.Warn("automated move rejected", "color", a.color, "row", row, "col", col, "err", err)
	}
}

func (a *Automated) UpdateBoardView(color game.Color, row, col int) {
	if game.InBounds(row, col) {
		a.board[row][col] = color
	}
}

func (a *Automated) EndGame(outcome game.Outcome) {
	select {
	case a.result <- outcome:
	default:
	}
}

// Result delivers the final outcome once.
func (a *Automated) Result() <-chan game.Outcome {
	return a.result
}
