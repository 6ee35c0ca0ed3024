package main

import (
	"errors"
	"sync"

	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/player"
)

var (
	errNotYourTurn = errors.New("it is not your turn")
	errOccupied    = errors.New("that cell is taken")
)

// console is the terminal behind a Local player. It mirrors the board so
// it can draw it and reject moves onto occupied cells.
type console struct {
	d     *display
	local *player.Local

	mu     sync.Mutex
	board  game.Board
	myTurn bool
	over   bool
}

func newConsole(d *display) *console {
	c := &console{d: d}
	c.local = player.NewLocal(c)
	return c
}

func (c *console) YourTurn(color game.Color) {
	c.mu.Lock()
	c.myTurn = true
	board := c.board
	c.mu.Unlock()
	c.d.Board(&board, color)
	c.d.Event("your turn (%s): move <row> <col>", stoneGlyph(color))
}

func (c *console) OpponentMoved(color game.Color, row, col int) {
	c.mu.Lock()
	c.board[row][col] = color
	c.mu.Unlock()
	c.d.Info("opponent played %d %d", row, col)
}

func (c *console) GameOver(outcome game.Outcome) {
	c.mu.Lock()
	c.myTurn, c.over = false, true
	board := c.board
	c.mu.Unlock()
	c.d.Board(&board, c.local.Color())
	c.d.Outcome(outcome)
}

// Move places our stone.
func (c *console) Move(row, col int) error {
	c.mu.Lock()
	switch {
	case !c.myTurn:
		c.mu.Unlock()
		return errNotYourTurn
	case !game.InBounds(row, col):
		c.mu.Unlock()
		return game.ErrOutOfBounds
	case c.board[row][col] != game.Empty:
		c.mu.Unlock()
		return errOccupied
	}
	c.myTurn = false
	c.board[row][col] = c.local.Color()
	c.mu.Unlock()

	if err := c.local.Move(row, col); err != nil {
		c.mu.Lock()
		c.board[row][col] = game.Empty
		c.myTurn = !c.over
		c.mu.Unlock()
		return err
	}
	return nil
}

// Forfeit skips our turn.
func (c *console) Forfeit() error {
	c.mu.Lock()
	if !c.myTurn {
		c.mu.Unlock()
		return errNotYourTurn
	}
	c.myTurn = false
	c.mu.Unlock()
	return c.local.Forfeit()
}
