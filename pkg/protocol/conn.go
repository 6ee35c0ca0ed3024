package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// MaxLineLength is the default upper bound for one inbound line.
const MaxLineLength = 4096

// ErrLineTooLong is returned by ReadLine when a peer exceeds the line limit.
var ErrLineTooLong = errors.New("protocol: line too long")

// Conn frames a stream transport into newline-terminated lines.
// Reads must come from a single goroutine; writes are safe for concurrent use.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	wmu     sync.Mutex
}

// NewConn wraps conn. maxLine <= 0 selects MaxLineLength.
func NewConn(conn net.Conn, maxLine int) *Conn {
	if maxLine <= 0 {
		maxLine = MaxLineLength
	}
	// The scanner's limit is the larger of maxLine and the initial capacity.
	initial := min(512, maxLine)
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, initial), maxLine)
	return &Conn{conn: conn, scanner: sc}
}

// ReadLine blocks until a full line arrives. A trailing carriage return is
// stripped. io.EOF is returned on a clean close.
func (c *Conn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return strings.TrimSuffix(c.scanner.Text(), "\r"), nil
	}
	err := c.scanner.Err()
	if err == nil {
		return "", io.EOF
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return "", ErrLineTooLong
	}
	return "", err
}

// WriteLine sends line followed by a newline.
func (c *Conn) WriteLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("write %q: %w", line, ErrMalformed)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	}
	return nil
}

// Close closes the underlying transport, unblocking any pending ReadLine.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteIP returns the peer IP without the port.
func (c *Conn) RemoteIP() string {
	addr := c.conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// IsClosed reports whether err comes from reading or writing a transport
// that has already been closed.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
