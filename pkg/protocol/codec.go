package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a payload does not match its grammar.
var ErrMalformed = errors.New("protocol: malformed payload")

// SplitTag splits a line into its leading bracketed tag and the remaining
// payload. ok is false when the line does not start with a bracketed token.
func SplitTag(line string) (tag, payload string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", line, false
	}
	end := strings.IndexByte(line, ']')
	if end < 2 {
		return "", line, false
	}
	return line[:end+1], line[end+1:], true
}

// EncodeCredentials builds the payload of a [REG] or [LOGIN] line.
func EncodeCredentials(username, password string) string {
	return username + " " + password
}

// DecodeCredentials parses "username password". The password is everything
// after the first space.
func DecodeCredentials(payload string) (username, password string, err error) {
	username, password, found := strings.Cut(payload, " ")
	if !found || username == "" || password == "" {
		return "", "", fmt.Errorf("credentials %q: %w", payload, ErrMalformed)
	}
	return username, password, nil
}

// EncodeMove renders a full [GAME][MOVE]row,col line.
func EncodeMove(row, col int) string {
	return TagGame + TagMove + strconv.Itoa(row) + "," + strconv.Itoa(col)
}

// DecodeMove parses the "row,col" payload that follows [GAME][MOVE].
func DecodeMove(payload string) (row, col int, err error) {
	parts, err := splitInts(payload, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("move %q: %w", payload, err)
	}
	return parts[0], parts[1], nil
}

// EncodeBoard renders a full [GAME][BOARD]color,row,col line.
func EncodeBoard(color, row, col int) string {
	return TagGame + TagBoard + strconv.Itoa(color) + "," + strconv.Itoa(row) + "," + strconv.Itoa(col)
}

// DecodeBoard parses the "color,row,col" payload that follows [GAME][BOARD].
func DecodeBoard(payload string) (color, row, col int, err error) {
	parts, err := splitInts(payload, 3)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("board %q: %w", payload, err)
	}
	return parts[0], parts[1], parts[2], nil
}

func splitInts(payload string, n int) ([]int, error) {
	fields := strings.Split(payload, ",")
	if len(fields) != n {
		return nil, ErrMalformed
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, ErrMalformed
		}
		out[i] = v
	}
	return out, nil
}

// EncodeHost renders the [HOST] line a game host sends to the server.
// Ports must have exactly four digits.
func EncodeHost(port int) (string, error) {
	if port < 1000 || port > 9999 {
		return "", fmt.Errorf("host port %d: %w", port, ErrMalformed)
	}
	return TagHost + strconv.Itoa(port), nil
}

// DecodeHostPort validates the payload of a client [HOST] line.
func DecodeHostPort(payload string) (int, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("host port %q: %w", payload, ErrMalformed)
	}
	port, err := strconv.Atoi(payload)
	if err != nil || port < 1000 {
		return 0, fmt.Errorf("host port %q: %w", payload, ErrMalformed)
	}
	return port, nil
}

// DecodeHostAddr parses the server-forwarded "<port><ip>" payload into a
// dialable host:port address.
func DecodeHostAddr(payload string) (string, error) {
	if len(payload) < 5 {
		return "", fmt.Errorf("host addr %q: %w", payload, ErrMalformed)
	}
	port, err := DecodeHostPort(payload[:4])
	if err != nil {
		return "", err
	}
	ip := payload[4:]
	if strings.Contains(ip, ":") && !strings.HasPrefix(ip, "[") {
		ip = "[" + ip + "]"
	}
	return ip + ":" + strconv.Itoa(port), nil
}

// EncodeScore renders the client to server game result report.
func EncodeScore(winner, loser string) string {
	return TagGame + winner + "," + loser
}

// DecodeScore parses "winner,loser".
func DecodeScore(payload string) (winner, loser string, err error) {
	winner, loser, found := strings.Cut(payload, ",")
	if !found || winner == "" || loser == "" {
		return "", "", fmt.Errorf("score %q: %w", payload, ErrMalformed)
	}
	return winner, loser, nil
}

// ErrorLine renders a dispatcher error response.
func ErrorLine(kind string) string {
	return TagError + kind
}
