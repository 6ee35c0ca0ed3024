package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/NicolasHaas/gomoku/pkg/game"
)

// display renders console output.
type display struct {
	out io.Writer

	infoColor   *color.Color
	eventColor  *color.Color
	warnColor   *color.Color
	errorColor  *color.Color
	winColor    *color.Color
	loseColor   *color.Color
	mineColor   *color.Color
	theirsColor *color.Color
	gridColor   *color.Color
}

func newDisplay(out io.Writer) *display {
	return &display{
		out:         out,
		infoColor:   color.New(color.FgWhite),
		eventColor:  color.New(color.FgCyan, color.Bold),
		warnColor:   color.New(color.FgYellow),
		errorColor:  color.New(color.FgRed, color.Bold),
		winColor:    color.New(color.FgGreen, color.Bold),
		loseColor:   color.New(color.FgRed, color.Bold),
		mineColor:   color.New(color.FgGreen, color.Bold),
		theirsColor: color.New(color.FgMagenta, color.Bold),
		gridColor:   color.New(color.FgHiBlack),
	}
}

func (d *display) line(c *color.Color, label, format string, args ...any) {
	ts := time.Now().Format("15:04:05")
	_, _ = c.Fprintf(d.out, "[%s] [%s] %s\n", ts, label, fmt.Sprintf(format, args...))
}

func (d *display) Info(format string, args ...any) {
	d.line(d.infoColor, "INFO", format, args...)
}

func (d *display) Event(format string, args ...any) {
	d.line(d.eventColor, "MATCH", format, args...)
}

func (d *display) Warn(format string, args ...any) {
	d.line(d.warnColor, "WARN", format, args...)
}

func (d *display) Error(format string, args ...any) {
	d.line(d.errorColor, "ERROR", format, args...)
}

// Outcome prints the end of a game from our side.
func (d *display) Outcome(o game.Outcome) {
	switch o {
	case game.Won:
		d.line(d.winColor, "GAME", "you won")
	case game.Lost:
		d.line(d.loseColor, "GAME", "you lost")
	default:
		d.line(d.eventColor, "GAME", "tie, the board is full")
	}
}

// Board draws the grid with column tens and ones above it. Our stones are
// drawn in mineColor.
func (d *display) Board(b *game.Board, me game.Color) {
	var tens, ones strings.Builder
	tens.WriteString("   ")
	ones.WriteString("   ")
	for c := 0; c < game.Size; c++ {
		tens.WriteString(fmt.Sprintf("%d ", c/10))
		ones.WriteString(fmt.Sprintf("%d ", c%10))
	}
	_, _ = d.gridColor.Fprintln(d.out, tens.String())
	_, _ = d.gridColor.Fprintln(d.out, ones.String())

	for r := 0; r < game.Size; r++ {
		_, _ = d.gridColor.Fprintf(d.out, "%2d ", r)
		for c := 0; c < game.Size; c++ {
			switch stone := b[r][c]; {
			case stone == game.Empty:
				_, _ = d.gridColor.Fprint(d.out, ". ")
			case stone == me:
				_, _ = d.mineColor.Fprint(d.out, stoneGlyph(stone)+" ")
			default:
				_, _ = d.theirsColor.Fprint(d.out, stoneGlyph(stone)+" ")
			}
		}
		fmt.Fprintln(d.out)
	}
}

func stoneGlyph(c game.Color) string {
	if c == game.Player1 {
		return "X"
	}
	return "O"
}
