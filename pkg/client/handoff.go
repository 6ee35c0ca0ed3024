package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/player"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// ErrGameAborted is returned when the peer transport drops before the game
// reaches a result.
var ErrGameAborted = errors.New("client: game aborted")

// ListenGame opens the listener a host accepts its peer on. The port is
// relayed as four digits, so it must lie in 1000..9999.
func ListenGame(ctx context.Context, port int) (net.Listener, error) {
	if port < 1000 || port > 9999 {
		return nil, fmt.Errorf("client: game port %d must have four digits", port)
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("client: listen game: %w", err)
	}
	return ln, nil
}

// watchMatch derives a context from ctx that is also canceled, with the
// failure as its cause, when match ends.
func watchMatch(ctx, match context.Context) (context.Context, func()) {
	wctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(match, func() { cancel(context.Cause(match)) })
	return wctx, func() {
		stop()
		cancel(nil)
	}
}

// HostGame announces ln through the directory, accepts the opponent and
// runs the authoritative engine with local as player 1. It closes ln.
// Waiting for the peer ends with ErrMatchFailed if the directory reports
// the opponent gone.
func (e *Engine) HostGame(ctx context.Context, ln net.Listener, local game.Player) (game.Outcome, error) {
	defer ln.Close()

	opponent, match := e.pendingMatch()
	if opponent == "" {
		return 0, ErrNoOpponent
	}
	tcp, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("client: game listener is not tcp: %s", ln.Addr())
	}
	line, err := protocol.EncodeHost(tcp.Port)
	if err != nil {
		return 0, err
	}
	if err := e.send(line); err != nil {
		return 0, err
	}

	waitCtx, release := watchMatch(ctx, match)
	stop := context.AfterFunc(waitCtx, func() { _ = ln.Close() })
	raw, err := ln.Accept()
	stop()
	cause := context.Cause(waitCtx)
	release()
	if err != nil {
		e.abortGame()
		if cause != nil {
			return 0, cause
		}
		return 0, fmt.Errorf("client: accept peer: %w", err)
	}
	e.matchConnected(match)

	log := slog.With("opponent", opponent, "role", "host")
	log.Info("peer connected", "addr", raw.RemoteAddr().String())

	remote := player.NewRemoteHost(protocol.NewConn(raw, 0), e.reporter(opponent))
	eng := game.New(local, remote)
	runErr := make(chan error, 1)
	go func() { runErr <- remote.Run(ctx) }()
	if err := eng.Start(); err != nil {
		_ = raw.Close()
		<-runErr
		e.abortGame()
		return 0, err
	}
	return e.finishGame(remote, <-runErr)
}

// JoinGame dials the host's relayed address and plays as player 2 with
// local bound to the remote proxy.
func (e *Engine) JoinGame(ctx context.Context, addr string, local game.Player) (game.Outcome, error) {
	opponent, match := e.pendingMatch()
	if opponent == "" {
		return 0, ErrNoOpponent
	}
	dialCtx, release := watchMatch(ctx, match)
	var d net.Dialer
	raw, err := d.DialContext(dialCtx, "tcp", addr)
	cause := context.Cause(dialCtx)
	release()
	if err != nil {
		e.abortGame()
		if cause != nil && errors.Is(cause, ErrMatchFailed) {
			return 0, cause
		}
		return 0, fmt.Errorf("client: connect host: %w", err)
	}
	e.matchConnected(match)
	slog.Info("joined game", "opponent", opponent, "addr", addr)

	remote := player.NewRemoteJoin(protocol.NewConn(raw, 0), local, e.reporter(opponent))
	return e.finishGame(remote, remote.Run(ctx))
}

// finishGame maps the remote's run result to an outcome. An unfinished game
// is reported to the directory as aborted.
func (e *Engine) finishGame(remote *player.Remote, runErr error) (game.Outcome, error) {
	outcome, finished := remote.Outcome()
	if finished {
		e.clearOpponent()
		return outcome, nil
	}
	e.abortGame()
	if errors.Is(runErr, player.ErrPeerGone) {
		return 0, fmt.Errorf("%w: %v", ErrGameAborted, runErr)
	}
	return 0, runErr
}

func (e *Engine) abortGame() {
	if err := e.send(protocol.TagGame + protocol.Aborted); err != nil {
		slog.Debug("report aborted game", "err", err)
	}
	e.clearOpponent()
}

func (e *Engine) clearOpponent() {
	e.mu.Lock()
	e.dropOpponentLocked(nil)
	e.mu.Unlock()
}

func (e *Engine) reporter(opponent string) *scoreReporter {
	return &scoreReporter{e: e, me: e.GetUsername(), opponent: opponent}
}

// scoreReporter sends the local side's result to the directory.
type scoreReporter struct {
	e        *Engine
	me       string
	opponent string
}

func (r *scoreReporter) ReportOutcome(outcome game.Outcome) error {
	switch outcome {
	case game.Won:
		return r.e.send(protocol.EncodeScore(r.me, r.opponent))
	case game.Lost:
		return r.e.send(protocol.EncodeScore(r.opponent, r.me))
	default:
		return r.e.send(protocol.TagGame + protocol.Tie)
	}
}
