package testutil

import (
	"bytes"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/cory-johannsen/hexdraft/internal/frontend/telnet"
)

// promptPattern matches the hexdraft input prompt on the wire: "[40 steps]> ",
// "[draft]> ", or "[over]> ", with the reset that closes its color.
var promptPattern = regexp.MustCompile(`\[(\d+ steps|draft|over)\]> (?:\x1b\[0m)?`)

// TelnetClient is a Telnet test client that speaks the hexdraft prompt protocol.
// Bytes read past a match are kept for the next read.
type TelnetClient struct {
	conn    net.Conn
	pending []byte
	t       *testing.T
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{conn: conn, t: t}
}

// readMatch reads until match finds an end offset in the buffered output, then returns
// the output up to that offset and keeps the rest.
func (c *TelnetClient) readMatch(what string, timeout time.Duration, match func([]byte) int) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	tmp := make([]byte, 1024)
	for {
		if end := match(c.pending); end >= 0 {
			out := string(c.pending[:end])
			c.pending = append([]byte(nil), c.pending[end:]...)
			return out
		}
		n, err := c.conn.Read(tmp)
		c.pending = append(c.pending, tmp[:n]...)
		if err != nil && match(c.pending) < 0 {
			c.t.Fatalf("reading until %s: got %q, error: %v", what, c.pending, err)
		}
	}
}

// ReadUntil reads until substr arrives and returns the output up to and including it.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the raw output ending in substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	return c.readMatch(fmt.Sprintf("%q", substr), timeout, func(b []byte) int {
		i := bytes.Index(b, []byte(substr))
		if i < 0 {
			return -1
		}
		return i + len(substr)
	})
}

// ReadPrompt reads through the next input prompt. It returns the output before the
// prompt with ANSI sequences removed, and the prompt label ("40 steps", "draft", "over").
//
// Postcondition: Fails the test if no prompt arrives within timeout.
func (c *TelnetClient) ReadPrompt(timeout time.Duration) (output, prompt string) {
	c.t.Helper()
	raw := c.readMatch("a prompt", timeout, func(b []byte) int {
		m := promptPattern.FindIndex(b)
		if m == nil {
			return -1
		}
		return m[1]
	})
	m := promptPattern.FindStringSubmatchIndex(raw)
	return telnet.StripANSI(raw[:m[0]]), raw[m[2]:m[3]]
}

// Command sends line and returns the stripped output and label of the next prompt.
func (c *TelnetClient) Command(line string, timeout time.Duration) (output, prompt string) {
	c.t.Helper()
	c.Send(line)
	return c.ReadPrompt(timeout)
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := fmt.Fprintf(c.conn, "%s\r\n", text)
	if err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
