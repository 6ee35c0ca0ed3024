package client

import (
	"context"

	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/player"
)

// PlayBot runs an offline game with local as player 1 against a built-in
// bot. No directory connection is needed and nothing is reported.
func PlayBot(ctx context.Context, local game.Player, strategy player.Strategy) (game.Outcome, error) {
	bot := player.NewAutomated(strategy)
	eng := game.New(local, bot)
	if err := eng.Start(); err != nil {
		return 0, err
	}
	select {
	case <-eng.Done():
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return (<-bot.Result()).Invert(), nil
}
