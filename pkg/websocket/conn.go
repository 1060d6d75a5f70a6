package websocket

import (
	"bufio"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Conn represents the configuration and state of
// an open client connection to a WebSocket server.
type Conn struct {
	// Initialized before the actual handshake.
	logger  *zerolog.Logger
	client  *http.Client
	headers http.Header

	// Initialized after the actual handshake.
	bufio  *bufio.ReadWriter
	readC  chan Message
	writeC chan internalMessage
	closer io.ReadWriteCloser

	// Closed by [Conn.readMessages] when the connection ends, to stop
	// the writer goroutine and unblock senders. The write channel itself
	// is never closed, so senders racing the closure get an error back
	// instead of a panic.
	closed chan struct{}

	// Both flags are read and written across goroutines: the
	// connection's reader updates them, and any sender may check
	// [Conn.IsClosed] or [Conn.IsClosing] at the same time.
	closeReceived bool
	closeSent     bool
	closeMu       sync.RWMutex

	// Only for the purpose of minimizing memory allocations (safely),
	// not for state management or memory sharing of any kind.
	readBuf  [8]byte
	writeBuf [8]byte
	closeBuf [maxControlPayload]byte

	// For unit-testing only.
	nonceGen io.Reader
}

// Message is a complete (defragmented) data message received from the server.
type Message struct {
	Opcode Opcode
	Data   []byte
}

// internalMessage is used to synchronize concurrent calls to [Conn.writeFrame].
type internalMessage struct {
	opcode Opcode
	data   []byte
	err    chan<- error
}

// IncomingMessages returns the connection's channel that publishes
// data messages as they are received from the server. The channel
// is closed when the connection is closed, for any reason.
func (c *Conn) IncomingMessages() <-chan Message {
	return c.readC
}

// readMessages runs as a [Conn] goroutine, to call [Conn.readMessage]
// continuously, in order to process control and data frames, and
// publish data messages to the subscribers of this connection.
func (c *Conn) readMessages() {
	msg := c.readMessage()
	for msg != nil {
		c.readC <- *msg
		msg = c.readMessage()
	}

	// The connection is closed (or broken) at this point:
	// [Conn.readMessage] already sent a close control frame. Stop the
	// writer goroutine, release the network connection, and notify
	// this connection's subscribers.
	close(c.closed)
	_ = c.closer.Close()
	close(c.readC)
}

// writeMessages runs as a [Conn] goroutine, to synchronize concurrent
// calls to [Conn.writeFrame]. For the time being, this package doesn't
// need to implement frame fragmentation in outbound messages.
func (c *Conn) writeMessages() {
	for {
		select {
		case msg := <-c.writeC:
			msg.err <- c.writeFrame(msg.opcode, msg.data)
			// The message's error channel can be used at most once.
			close(msg.err)
		case <-c.closed:
			return
		}
	}
}
