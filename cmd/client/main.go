package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/NicolasHaas/gomoku/pkg/client"
	"github.com/NicolasHaas/gomoku/pkg/game"
	"github.com/NicolasHaas/gomoku/pkg/logging"
	"github.com/NicolasHaas/gomoku/pkg/player"
	"github.com/NicolasHaas/gomoku/pkg/version"
)

const helpText = `commands:
  connect [addr]          connect to a directory server
  register <user> <pass>  create an account and log in
  login <user> <pass>     log in
  anon                    log in under a generated name
  who                     list online users and pending invites
  invite <user>           invite a user to a match
  accept <user>           accept an invite
  deny <user>             decline an invite
  cancel <user>           withdraw an invite
  move <row> <col>        place a stone
  forfeit                 skip the current turn
  bot                     play offline against the built-in bot
  quit                    disconnect and exit`

// app holds the REPL state.
type app struct {
	ctx      context.Context
	d        *display
	engine   *client.Engine
	settings *client.Settings
	path     string

	mu   sync.Mutex
	game *console // current game, nil when idle
}

func main() {
	settingsPath := flag.String("settings", client.SettingsPath(), "Settings YAML file")
	serverAddr := flag.String("server", "", "Directory server address (default from settings)")
	gamePort := flag.Int("port", 0, "Four-digit port to host games on (default from settings, 5432; change it if PostgreSQL runs locally)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Logs go to stderr so they do not interleave with the board; override
	// with GOMOKU_LOG_LEVEL, GOMOKU_LOG_FORMAT and GOMOKU_LOG_FILE.
	level := "warn"
	if v := os.Getenv("GOMOKU_LOG_LEVEL"); v != "" {
		level = v
	}
	format := "text"
	if v := os.Getenv("GOMOKU_LOG_FORMAT"); v != "" {
		format = v
	}
	if err := logging.Setup(logging.Options{
		Level:  level,
		Format: format,
		Output: os.Stderr,
		File:   os.Getenv("GOMOKU_LOG_FILE"),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	settings := client.LoadSettings(*settingsPath)
	if *serverAddr != "" {
		settings.ServerAddr = *serverAddr
	}
	if *gamePort != 0 {
		settings.GamePort = *gamePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		ctx:      ctx,
		d:        newDisplay(os.Stdout),
		engine:   client.NewEngine(),
		settings: settings,
		path:     *settingsPath,
	}
	a.wire()
	a.d.Info("gomoku %s, type help for commands", version.String())
	a.run(ctx)
	a.engine.Disconnect()
}

// run reads commands until quit, EOF or a signal.
func (a *app) run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := a.exec(strings.Fields(line)); quit {
				return
			}
		}
	}
}

func (a *app) exec(args []string) (quit bool) {
	if len(args) == 0 {
		return false
	}
	var err error
	switch cmd := strings.ToLower(args[0]); cmd {
	case "help", "?":
		fmt.Println(helpText)
	case "connect":
		addr := a.settings.ServerAddr
		if len(args) > 1 {
			addr = args[1]
		}
		err = a.connect(addr)
	case "register", "login":
		if len(args) != 3 {
			a.d.Warn("usage: %s <user> <pass>", cmd)
			return false
		}
		err = a.auth(cmd, args[1], args[2])
	case "anon":
		err = a.auth(cmd, "", "")
	case "who":
		a.who()
	case "invite", "accept", "deny", "cancel":
		if len(args) != 2 {
			a.d.Warn("usage: %s <user>", cmd)
			return false
		}
		err = a.match(cmd, args[1])
	case "move":
		err = a.move(args[1:])
	case "forfeit":
		if g := a.current(); g != nil {
			err = g.Forfeit()
		} else {
			err = errors.New("no game in progress")
		}
	case "bot":
		err = a.playBot()
	case "quit", "exit":
		return true
	default:
		a.d.Warn("unknown command %q, type help", cmd)
	}
	if err != nil {
		a.d.Error("%v", err)
	}
	return false
}

func (a *app) connect(addr string) error {
	if err := a.engine.Connect(a.ctx, addr); err != nil {
		return err
	}
	a.settings.ServerAddr = addr
	a.d.Info("connected to %s", addr)
	return nil
}

func (a *app) auth(cmd, user, pass string) error {
	if a.engine.GetState() == client.StateDisconnected {
		if err := a.connect(a.settings.ServerAddr); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	var (
		reply client.AuthReply
		err   error
	)
	switch cmd {
	case "register":
		reply, err = a.engine.Register(ctx, user, pass)
	case "login":
		reply, err = a.engine.Login(ctx, user, pass)
	default:
		reply, err = a.engine.Anon(ctx)
	}
	if err != nil {
		return err
	}
	if reply.Username == "" {
		return fmt.Errorf("login refused: %s", reply.Result)
	}
	a.d.Info("logged in as %s", reply.Username)

	if cmd != "anon" {
		a.settings.Remember(a.settings.ServerAddr, reply.Username, time.Now().Unix())
		if err := a.settings.Save(a.path); err != nil {
			slog.Warn("save settings", "err", err)
		}
	}
	return nil
}

func (a *app) who() {
	a.d.Info("online: %s", strings.Join(a.engine.Online(), ", "))
	if sent := a.engine.SentRequests(); len(sent) > 0 {
		a.d.Info("invited: %s", strings.Join(sent, ", "))
	}
	if recv := a.engine.ReceivedRequests(); len(recv) > 0 {
		a.d.Info("invites from: %s", strings.Join(recv, ", "))
	}
}

func (a *app) match(cmd, name string) error {
	switch cmd {
	case "invite":
		return a.engine.SendRequest(name)
	case "accept":
		if a.current() != nil {
			return errors.New("finish the current game first")
		}
		return a.engine.Respond(name, true)
	case "deny":
		return a.engine.Respond(name, false)
	default:
		return a.engine.CancelRequest(name)
	}
}

func (a *app) move(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: move <row> <col>")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad row %q", args[0])
	}
	col, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad col %q", args[1])
	}
	g := a.current()
	if g == nil {
		return errors.New("no game in progress")
	}
	return g.Move(row, col)
}

func (a *app) current() *console {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.game
}

// begin claims the game slot. It reports false if a game is running.
func (a *app) begin() (*console, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.game != nil {
		return nil, false
	}
	a.game = newConsole(a.d)
	return a.game, true
}

func (a *app) end() {
	a.mu.Lock()
	a.game = nil
	a.mu.Unlock()
}

func (a *app) playBot() error {
	g, ok := a.begin()
	if !ok {
		return errors.New("a game is already running")
	}
	go func() {
		defer a.end()
		if _, err := client.PlayBot(a.ctx, g.local, player.RandomStrategy{}); err != nil {
			a.d.Error("bot game: %v", err)
		}
	}()
	return nil
}

func (a *app) hostGame(opponent string) {
	g, ok := a.begin()
	if !ok {
		a.d.Warn("cannot host %s, a game is already running", opponent)
		return
	}
	defer a.end()

	ln, err := client.ListenGame(a.ctx, a.settings.GamePort)
	if err != nil {
		a.d.Error("%v", err)
		return
	}
	a.d.Event("hosting %s on port %d", opponent, a.settings.GamePort)
	a.report(a.engine.HostGame(a.ctx, ln, g.local))
}

func (a *app) joinGame(opponent, addr string) {
	g, ok := a.begin()
	if !ok {
		a.d.Warn("cannot join %s, a game is already running", opponent)
		return
	}
	defer a.end()

	a.d.Event("joining %s at %s", opponent, addr)
	a.report(a.engine.JoinGame(a.ctx, addr, g.local))
}

func (a *app) report(_ game.Outcome, err error) {
	if err != nil {
		a.d.Error("game: %v", err)
	}
}

// wire connects engine callbacks to the console. Games start on their own
// goroutine since callbacks run on the receive loop.
func (a *app) wire() {
	e := a.engine
	e.OnOnlineUpdate = func(online []string) {
		a.d.Info("%d other user(s) online", len(online))
	}
	e.OnInvite = func(from string) {
		a.d.Event("%s invites you: accept %s / deny %s", from, from, from)
	}
	e.OnInviteAnswered = func(from string, confirmed bool) {
		if !confirmed {
			a.d.Event("%s declined", from)
			return
		}
		a.d.Event("%s accepted", from)
		go a.hostGame(from)
	}
	e.OnInviteCanceled = func(from string) {
		a.d.Event("%s withdrew the invite", from)
	}
	e.OnMatchFailure = func(name string) {
		a.d.Warn("match with %s failed", name)
	}
	e.OnNoUser = func(name string) {
		a.d.Warn("%s is not online", name)
	}
	e.OnHostAddress = func(opponent, addr string) {
		go a.joinGame(opponent, addr)
	}
	e.OnError = func(err error) {
		a.d.Error("%v", err)
	}
	e.OnDisconnect = func(reason string) {
		a.d.Warn("disconnected: %s", reason)
	}
}
