package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// runThrough counts the full run of mark through (row, col) along (dr, dc).
func runThrough(b *Board, row, col, dr, dc int) int {
	mark := b[row][col]
	n := 1
	for r, c := row+dr, col+dc; InBounds(r, c) && b[r][c] == mark; r, c = r+dr, c+dc {
		n++
	}
	for r, c := row-dr, col-dc; InBounds(r, c) && b[r][c] == mark; r, c = r-dr, c-dc {
		n++
	}
	return n
}

func referenceWin(b *Board, row, col int) bool {
	if b[row][col] == Empty {
		return false
	}
	for _, d := range [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}} {
		if runThrough(b, row, col, d[0], d[1]) >= WinLength {
			return true
		}
	}
	return false
}

func TestCheckWinMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 300; trial++ {
		var b Board
		density := 0.2 + rng.Float64()*0.7
		for r := range b {
			for c := range b[r] {
				if rng.Float64() < density {
					b[r][c] = Color(1 + rng.IntN(2))
				}
			}
		}
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				got, _ := b.CheckWin(r, c)
				require.Equal(t, referenceWin(&b, r, c), got, "trial %d cell (%d,%d)", trial, r, c)
			}
		}
	}
}

func TestCheckWinAxes(t *testing.T) {
	tests := []struct {
		name   string
		cells  [][2]int
		placed [2]int
		axis   Axis
	}{
		{"row", [][2]int{{5, 5}, {5, 6}, {5, 7}, {5, 8}, {5, 9}}, [2]int{5, 9}, AxisRow},
		{"column", [][2]int{{0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 3}}, [2]int{0, 3}, AxisColumn},
		{"diagonal down straddling", [][2]int{{10, 10}, {11, 11}, {12, 12}, {13, 13}, {14, 14}}, [2]int{12, 12}, AxisDiagDown},
		{"diagonal up at edge", [][2]int{{29, 0}, {28, 1}, {27, 2}, {26, 3}, {25, 4}}, [2]int{27, 2}, AxisDiagUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Board
			for _, c := range tt.cells {
				b[c[0]][c[1]] = Player2
			}
			won, axis := b.CheckWin(tt.placed[0], tt.placed[1])
			require.True(t, won)
			require.Equal(t, tt.axis, axis)
		})
	}
}

func TestCheckWinFourIsNotEnough(t *testing.T) {
	var b Board
	for c := 0; c < 4; c++ {
		b[0][c] = Player1
	}
	b[0][4] = Player2
	won, _ := b.CheckWin(0, 3)
	require.False(t, won)
}

func TestCheckWinEmptyAndOutOfBounds(t *testing.T) {
	var b Board
	won, _ := b.CheckWin(3, 3)
	require.False(t, won)
	won, _ = b.CheckWin(-1, 3)
	require.False(t, won)
}

func TestOpponentAndOutcome(t *testing.T) {
	require.Equal(t, Player2, Player1.Opponent())
	require.Equal(t, Player1, Player2.Opponent())
	require.Equal(t, Empty, Empty.Opponent())
	require.Equal(t, Lost, Won.Invert())
	require.Equal(t, Won, Lost.Invert())
	require.Equal(t, Tied, Tied.Invert())
}
