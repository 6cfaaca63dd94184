package carrier

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// Route names one administrative conversation: who is talking, who is
// listening, and which carrier the conversation claims to use.
type Route struct {
	From    string
	To      string
	Carrier string
}

// Conn is one administrative channel, owned by a single operation and
// closed on every exit path.
type Conn interface {
	// Open announces the route before any command travels.
	Open(r Route) error

	// SetTimeout bounds each subsequent I/O step. Zero disables it.
	SetTimeout(d time.Duration)

	// CanEscape reports whether the channel accepts the one-byte
	// admin/data tag before a command.
	CanEscape() bool

	// WriteTag sends the admin/data tag.
	WriteTag(tag byte) error

	// WriteMessage sends one command list.
	WriteMessage(m *msg.Message) error

	// ReadMessage reads back one reply list.
	ReadMessage() (*msg.Message, error)

	Close() error
}

// textConn is the line-oriented admin channel shared by the
// stream-based built-in carriers: one route header line, then one
// command or reply per line.
type textConn struct {
	conn    net.Conn
	rd      *bufio.Reader
	timeout time.Duration
	escape  bool
}

func dialText(addr contact.Contact, timeout time.Duration, escape bool) (Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	c, err := dialer.Dial("tcp", addr.Address())
	if err != nil {
		return nil, fmt.Errorf("carrier: dial %s: %w", addr.Address(), err)
	}
	return &textConn{
		conn:    c,
		rd:      bufio.NewReader(c),
		timeout: timeout,
		escape:  escape,
	}, nil
}

func (t *textConn) Open(r Route) error {
	line := fmt.Sprintf("yarp %s %s %s\n", r.From, r.To, r.Carrier)
	return t.writeLine(line)
}

func (t *textConn) SetTimeout(d time.Duration) { t.timeout = d }

func (t *textConn) CanEscape() bool { return t.escape }

func (t *textConn) WriteTag(tag byte) error {
	return t.writeLine(string(tag) + "\n")
}

func (t *textConn) WriteMessage(m *msg.Message) error {
	return t.writeLine(m.String() + "\n")
}

func (t *textConn) ReadMessage() (*msg.Message, error) {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return nil, err
		}
	}
	line, err := t.rd.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("carrier: read reply: %w", err)
	}
	return msg.Parse(strings.TrimRight(line, "\r\n")), nil
}

func (t *textConn) writeLine(line string) error {
	if t.timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
			return err
		}
	}
	if _, err := t.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("carrier: write: %w", err)
	}
	return nil
}

func (t *textConn) Close() error { return t.conn.Close() }
