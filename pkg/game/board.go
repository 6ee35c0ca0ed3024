// Package game implements the five-in-a-row turn engine.
package game

import "fmt"

// Size is the width and height of the grid.
const Size = 30

// WinLength is the run length that wins.
const WinLength = 5

// ForfeitRow and ForfeitCol form the reserved "no move" sentinel sent when
// a turn expires without a placement.
const (
	ForfeitRow = -1
	ForfeitCol = -1
)

// Color is the value of one cell and also identifies a player.
type Color int8

const (
	Empty Color = iota
	Player1
	Player2
)

// Opponent returns the other player's color.
func (c Color) Opponent() Color {
	switch c {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return Empty
	}
}

func (c Color) String() string {
	switch c {
	case Empty:
		return "empty"
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return fmt.Sprintf("color(%d)", int8(c))
	}
}

// Valid reports whether c names a player.
func (c Color) Valid() bool {
	return c == Player1 || c == Player2
}

// Board is the grid indexed [row][col].
type Board [Size][Size]Color

// InBounds reports whether (row, col) addresses a cell.
func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// IsForfeit reports whether a move is the forfeit sentinel.
func IsForfeit(row, col int) bool {
	return row < 0 || col < 0
}

// Full reports whether no empty cell remains.
func (b *Board) Full() bool {
	for r := range b {
		for c := range b[r] {
			if b[r][c] == Empty {
				return false
			}
		}
	}
	return true
}

// Empties lists the coordinates of every empty cell in row-major order.
func (b *Board) Empties() [][2]int {
	var out [][2]int
	for r := range b {
		for c := range b[r] {
			if b[r][c] == Empty {
				out = append(out, [2]int{r, c})
			}
		}
	}
	return out
}

// Axis is one of the four line directions checked for a win.
type Axis int

const (
	AxisNone Axis = iota
	AxisRow
	AxisColumn
	AxisDiagDown // ↘
	AxisDiagUp   // ↙
)

func (a Axis) String() string {
	switch a {
	case AxisRow:
		return "row"
	case AxisColumn:
		return "column"
	case AxisDiagDown:
		return "diagonal_down"
	case AxisDiagUp:
		return "diagonal_up"
	default:
		return "none"
	}
}

// axes in evaluation order, each with its positive unit step (dRow, dCol).
var axes = [...]struct {
	axis       Axis
	dRow, dCol int
}{
	{AxisRow, 0, 1},
	{AxisColumn, 1, 0},
	{AxisDiagDown, 1, 1},
	{AxisDiagUp, 1, -1},
}

// CheckWin reports whether the stone at (row, col) completes a run of
// WinLength and on which axis. Each axis starts the count at 1 for the placed
// stone, walks up to WinLength-1 matching cells forward and then, without
// resetting, up to WinLength-1 cells backward, stopping as soon as the count
// reaches WinLength.
func (b *Board) CheckWin(row, col int) (bool, Axis) {
	if !InBounds(row, col) {
		return false, AxisNone
	}
	mark := b[row][col]
	if mark == Empty {
		return false, AxisNone
	}

	for _, a := range axes {
		count := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row, col
			for step := 0; step < WinLength-1; step++ {
				r += sign * a.dRow
				c += sign * a.dCol
				if !InBounds(r, c) || b[r][c] != mark {
					break
				}
				count++
				if count >= WinLength {
					return true, a.axis
				}
			}
		}
	}
	return false, AxisNone
}
