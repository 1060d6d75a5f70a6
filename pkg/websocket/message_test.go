package websocket

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// fullConn returns a connection that reads the given server frames and
// discards everything it writes, with an active writer goroutine.
func fullConn(t *testing.T, frames []byte) *Conn {
	t.Helper()

	l := zerolog.Nop()
	c := &Conn{
		logger: &l,
		bufio: bufio.NewReadWriter(
			bufio.NewReader(bytes.NewReader(frames)),
			bufio.NewWriter(io.Discard),
		),
		writeC: make(chan internalMessage),
		closed: make(chan struct{}),
	}

	go c.writeMessages()
	t.Cleanup(func() { close(c.closed) })

	return c
}

func TestReadMessageDefragments(t *testing.T) {
	// A text message split into two fragments.
	frames := []byte{0x01, 0x03, 'a', 'b', 'c', 0x80, 0x03, 'd', 'e', 'f'}
	c := fullConn(t, frames)

	msg := c.readMessage()
	if msg == nil {
		t.Fatal("Conn.readMessage() = nil, want a message")
	}
	if msg.Opcode != opcodeText {
		t.Errorf("Conn.readMessage() opcode = %v, want %v", msg.Opcode, opcodeText)
	}
	if got := string(msg.Data); got != "abcdef" {
		t.Errorf("Conn.readMessage() data = %q, want %q", got, "abcdef")
	}
}

func TestReadMessageAnswersPing(t *testing.T) {
	// A ping control frame, followed by a text message.
	frames := []byte{0x89, 0x02, 'h', 'i', 0x81, 0x02, 'o', 'k'}
	c := fullConn(t, frames)

	msg := c.readMessage()
	if msg == nil {
		t.Fatal("Conn.readMessage() = nil, want a message")
	}
	if got := string(msg.Data); got != "ok" {
		t.Errorf("Conn.readMessage() data = %q, want %q", got, "ok")
	}
}

func TestReadMessageCloseHandshake(t *testing.T) {
	// A close control frame with status 1000 (normal closure).
	frames := []byte{0x88, 0x02, 0x03, 0xE8}
	c := fullConn(t, frames)

	if msg := c.readMessage(); msg != nil {
		t.Errorf("Conn.readMessage() = %+v, want nil", msg)
	}
	if !c.IsClosed() {
		t.Error("Conn.IsClosed() = false after the closing handshake")
	}
}

func TestReadMessageTooBig(t *testing.T) {
	// A text frame advertising a payload of 1 MiB + 1 byte.
	frames := []byte{0x81, 0x7F, 0, 0, 0, 0, 0, 0x10, 0x00, 0x01}
	c := fullConn(t, frames)

	if msg := c.readMessage(); msg != nil {
		t.Errorf("Conn.readMessage() = %+v, want nil", msg)
	}
	if !c.isCloseSent() {
		t.Error("Conn didn't send a close control frame")
	}
}
