package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NicolasHaas/gomoku/pkg/model"
	"github.com/NicolasHaas/gomoku/pkg/protocol"
)

// fakeDirectory is a scripted directory server holding one client.
type fakeDirectory struct {
	t     *testing.T
	conn  *protocol.Conn
	lines chan string
}

func (f *fakeDirectory) send(line string) {
	f.t.Helper()
	require.NoError(f.t, f.conn.WriteLine(line))
}

func (f *fakeDirectory) expect(want string) {
	f.t.Helper()
	select {
	case got, ok := <-f.lines:
		require.True(f.t, ok, "client closed, want %q", want)
		require.Equal(f.t, want, got)
	case <-time.After(2 * time.Second):
		f.t.Fatalf("timed out waiting for %q", want)
	}
}

func connectFake(t *testing.T, e *Engine) *fakeDirectory {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		if c, err := ln.Accept(); err == nil {
			accepted <- c
		}
	}()
	require.NoError(t, e.Connect(context.Background(), ln.Addr().String()))
	t.Cleanup(e.Disconnect)

	var raw net.Conn
	select {
	case raw = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("fake directory accept timed out")
	}
	f := &fakeDirectory{t: t, conn: protocol.NewConn(raw, 0), lines: make(chan string, 64)}
	go func() {
		defer close(f.lines)
		for {
			line, err := f.conn.ReadLine()
			if err != nil {
				return
			}
			f.lines <- line
		}
	}()
	t.Cleanup(func() { _ = f.conn.Close() })
	return f
}

type authCall struct {
	reply AuthReply
	err   error
}

// loginAs runs Login while the fake answers with reply.
func loginAs(t *testing.T, e *Engine, f *fakeDirectory, name, reply string) authCall {
	t.Helper()
	done := make(chan authCall, 1)
	go func() {
		r, err := e.Login(context.Background(), name, "pw")
		done <- authCall{r, err}
	}()
	f.expect(protocol.TagLogin + name + " pw")
	f.send(reply)
	select {
	case c := <-done:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("login did not return")
		return authCall{}
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
		var zero T
		return zero
	}
}

func TestAuthReplies(t *testing.T) {
	type tcase struct {
		reply   string
		want    AuthReply
		wantErr error
		state   State
	}
	tests := map[string]tcase{
		"success": {
			reply: "[AUTH]SUCCESSalice",
			want:  AuthReply{Result: model.AuthSuccess, Username: "alice"},
			state: StateAuthenticated,
		},
		"no user": {
			reply: "[AUTH]NOUSER",
			want:  AuthReply{Result: model.AuthUserNotFound},
			state: StateConnected,
		},
		"wrong password": {
			reply: "[AUTH]BADPASS",
			want:  AuthReply{Result: model.AuthWrongPassword},
			state: StateConnected,
		},
		"already online": {
			reply: "[AUTH][UPDTUSERSONLINE]",
			want:  AuthReply{Result: model.AuthAlreadyOnline},
			state: StateConnected,
		},
		"failure": {
			reply:   "[AUTH]FAILURE",
			wantErr: ErrAuthFailed,
			state:   StateConnected,
		},
		"garbage": {
			reply:   "[AUTH]WHAT",
			wantErr: protocol.ErrMalformed,
			state:   StateConnected,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := NewEngine()
			f := connectFake(t, e)
			got := loginAs(t, e, f, "alice", tc.reply)
			if tc.wantErr != nil {
				require.ErrorIs(t, got.err, tc.wantErr)
			} else {
				require.NoError(t, got.err)
				require.Equal(t, tc.want, got.reply)
			}
			require.Equal(t, tc.state, e.GetState())
		})
	}
}

func TestRegisterAndAnonLines(t *testing.T) {
	e := NewEngine()
	f := connectFake(t, e)

	done := make(chan authCall, 1)
	go func() {
		r, err := e.Register(context.Background(), "bob", "secret")
		done <- authCall{r, err}
	}()
	f.expect("[REG]bob secret")
	f.send("[AUTH]USERTAKEN")
	c := recv(t, done)
	require.NoError(t, c.err)
	require.Equal(t, model.AuthUsernameTaken, c.reply.Result)

	go func() {
		r, err := e.Anon(context.Background())
		done <- authCall{r, err}
	}()
	f.expect("[ANON]")
	f.send("[AUTH]SUCCESSRedFox")
	c = recv(t, done)
	require.NoError(t, c.err)
	require.Equal(t, "RedFox", c.reply.Username)
	require.Equal(t, "RedFox", e.GetUsername())
}

func TestServerErrorResolvesPendingAuth(t *testing.T) {
	e := NewEngine()
	f := connectFake(t, e)
	got := loginAs(t, e, f, "alice", "[ERROR]ALREADYAUTHENTICATED")

	var serr *ServerError
	require.ErrorAs(t, got.err, &serr)
	require.Equal(t, protocol.ErrKindAlreadyAuthenticated, serr.Kind)
}

func TestAuthRequiresConnection(t *testing.T) {
	_, err := NewEngine().Anon(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestPresenceUpdates(t *testing.T) {
	e := NewEngine()
	updates := make(chan []string, 8)
	e.OnOnlineUpdate = func(online []string) { updates <- online }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	f.send("[MATCH][UPDTUSERSONLINE][NEWUSER]carol")
	require.Equal(t, []string{"carol"}, recv(t, updates))
	f.send("[MATCH][UPDTUSERSONLINE][NEWUSER]bob")
	require.Equal(t, []string{"bob", "carol"}, recv(t, updates))
	f.send("[MATCH][UPDTUSERSONLINE][RMVUSER]carol")
	require.Equal(t, []string{"bob"}, recv(t, updates))
	require.Equal(t, []string{"bob"}, e.Online())
}

func TestSendRequestIsIdempotent(t *testing.T) {
	e := NewEngine()
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	require.NoError(t, e.SendRequest("bob"))
	require.NoError(t, e.SendRequest("bob"))
	require.NoError(t, e.CancelRequest("bob"))
	require.NoError(t, e.CancelRequest("bob"))
	require.NoError(t, e.SendRequest("carol"))

	f.expect("[SENDINV]bob")
	f.expect("[CNCLUSR]bob")
	f.expect("[SENDINV]carol")
	require.Equal(t, []string{"carol"}, e.SentRequests())
}

func TestInviteAnswers(t *testing.T) {
	e := NewEngine()
	answers := make(chan bool, 2)
	e.OnInviteAnswered = func(_ string, confirmed bool) { answers <- confirmed }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	require.NoError(t, e.SendRequest("bob"))
	require.NoError(t, e.SendRequest("carol"))
	f.expect("[SENDINV]bob")
	f.expect("[SENDINV]carol")

	f.send("[MATCH][RSPINV][DENY]bob")
	require.False(t, recv(t, answers))
	require.Empty(t, e.Opponent())

	f.send("[MATCH][RSPINV][CONF]carol")
	require.True(t, recv(t, answers))
	require.Equal(t, "carol", e.Opponent())
	require.Empty(t, e.SentRequests())
}

func TestRespondToInvite(t *testing.T) {
	e := NewEngine()
	invites := make(chan string, 2)
	failures := make(chan string, 1)
	canceled := make(chan string, 1)
	e.OnInvite = func(from string) { invites <- from }
	e.OnMatchFailure = func(name string) { failures <- name }
	e.OnInviteCanceled = func(from string) { canceled <- from }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	require.ErrorIs(t, e.Respond("bob", true), ErrNoInvite)

	f.send("[MATCH][SENDINV]bob")
	require.Equal(t, "bob", recv(t, invites))
	f.send("[MATCH][SENDINV]dave")
	require.Equal(t, "dave", recv(t, invites))
	require.Equal(t, []string{"bob", "dave"}, e.ReceivedRequests())

	require.NoError(t, e.Respond("bob", true))
	f.expect("[RSPINV][CONF]bob")
	require.Equal(t, "bob", e.Opponent())

	// bob is already playing: the invite stays pending.
	f.send("[MATCH]FAILUREbob")
	require.Equal(t, "bob", recv(t, failures))
	require.Empty(t, e.Opponent())
	require.Equal(t, []string{"bob", "dave"}, e.ReceivedRequests())

	f.send("[MATCH][CNCLUSR]dave")
	require.Equal(t, "dave", recv(t, canceled))
	require.Equal(t, []string{"bob"}, e.ReceivedRequests())
}

func TestNoUserClearsInvite(t *testing.T) {
	e := NewEngine()
	missing := make(chan string, 1)
	e.OnNoUser = func(name string) { missing <- name }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	require.NoError(t, e.SendRequest("ghost"))
	f.expect("[SENDINV]ghost")
	f.send("[MATCH]NOUSERghost")
	require.Equal(t, "ghost", recv(t, missing))
	require.Empty(t, e.SentRequests())
}

func TestHostAddressCallback(t *testing.T) {
	e := NewEngine()
	invites := make(chan string, 1)
	type host struct{ opponent, addr string }
	hosts := make(chan host, 1)
	e.OnInvite = func(from string) { invites <- from }
	e.OnHostAddress = func(opponent, addr string) { hosts <- host{opponent, addr} }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	f.send("[MATCH][SENDINV]bob")
	recv(t, invites)
	require.NoError(t, e.Respond("bob", true))
	f.expect("[RSPINV][CONF]bob")

	f.send("[HOST]543210.0.0.7")
	require.Equal(t, host{"bob", "10.0.0.7:5432"}, recv(t, hosts))
}

func TestDisconnectResolvesInvites(t *testing.T) {
	e := NewEngine()
	invites := make(chan string, 1)
	e.OnInvite = func(from string) { invites <- from }
	f := connectFake(t, e)
	loginAs(t, e, f, "alice", "[AUTH]SUCCESSalice")

	require.NoError(t, e.SendRequest("bob"))
	f.expect("[SENDINV]bob")
	f.send("[MATCH][SENDINV]carol")
	recv(t, invites)

	e.Disconnect()
	f.expect("[RSPINV][DENY]carol")
	f.expect("[CNCLUSR]bob")
	f.expect("[DISCON]")
	require.Equal(t, StateDisconnected, e.GetState())
	require.Empty(t, e.GetUsername())
}

func TestConnectionLost(t *testing.T) {
	e := NewEngine()
	reasons := make(chan string, 1)
	e.OnDisconnect = func(reason string) { reasons <- reason }
	f := connectFake(t, e)

	require.NoError(t, f.conn.Close())
	require.Equal(t, "connection lost", recv(t, reasons))
	require.Equal(t, StateDisconnected, e.GetState())

	_, err := e.Anon(context.Background())
	require.True(t, errors.Is(err, ErrNotConnected))
}

func TestConnectTwice(t *testing.T) {
	e := NewEngine()
	connectFake(t, e)
	require.ErrorIs(t, e.Connect(context.Background(), "127.0.0.1:1"), ErrAlreadyConnected)
}

func TestRespondWhileMatched(t *testing.T) {
	e := NewEngine()
	invites := make(chan string, 2)
	e.OnInvite = func(from string) { invites <- from }
	f := connectFake(t, e)
	loginAs(t, e, f, "bob", "[AUTH]SUCCESSbob")

	f.send("[MATCH][SENDINV]carol")
	recv(t, invites)
	f.send("[MATCH][SENDINV]dave")
	recv(t, invites)

	require.NoError(t, e.Respond("carol", true))
	f.expect("[RSPINV][CONF]carol")

	require.ErrorIs(t, e.Respond("dave", true), ErrAlreadyMatched)
	require.Equal(t, "carol", e.Opponent())
	require.Equal(t, []string{"dave"}, e.ReceivedRequests())

	require.NoError(t, e.Respond("dave", false))
	f.expect("[RSPINV][DENY]dave")
	require.Empty(t, e.ReceivedRequests())
}

func TestOpponentLeavingEndsMatch(t *testing.T) {
	e := NewEngine()
	invites := make(chan string, 1)
	failures := make(chan string, 1)
	e.OnInvite = func(from string) { invites <- from }
	e.OnMatchFailure = func(name string) { failures <- name }
	f := connectFake(t, e)
	loginAs(t, e, f, "bob", "[AUTH]SUCCESSbob")

	f.send("[MATCH][UPDTUSERSONLINE][NEWUSER]carol")
	f.send("[MATCH][SENDINV]carol")
	recv(t, invites)
	require.NoError(t, e.Respond("carol", true))
	f.expect("[RSPINV][CONF]carol")

	f.send("[MATCH][UPDTUSERSONLINE][RMVUSER]carol")
	require.Equal(t, "carol", recv(t, failures))
	require.Empty(t, e.Opponent())

	_, err := e.JoinGame(context.Background(), "127.0.0.1:1", nil)
	require.ErrorIs(t, err, ErrNoOpponent)
}
