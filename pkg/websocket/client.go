package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	initialRedialDelay = 1 * time.Second
	maxRedialDelay     = 30 * time.Second
)

// URLFunc resolves the WebSocket URL to connect to. It is called before
// every connection attempt, because some servers (e.g. Slack's Socket
// Mode) hand out single-use URLs which can't be dialed twice.
type URLFunc func(ctx context.Context) (string, error)

// Client is a long-running wrapper of consecutive connections to the
// same WebSocket server with the same credentials. It manages a single
// [Conn] at a time: when that connection ends, for any reason, the
// client resolves a fresh URL and dials a new connection, with capped
// exponential backoff between failed attempts. Subscribers read from a
// single channel that is unaffected by these reconnections.
type Client struct {
	logger *zerolog.Logger
	url    URLFunc
	opts   []DialOpt

	mu   sync.Mutex
	conn *Conn

	connected atomic.Bool
	outMsgs   chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient dials an initial connection, and if that succeeds it returns
// an active client which maintains a connection until [Client.Close] is
// called. An initial dialing failure is returned rather than retried, so
// misconfigurations (e.g. a bad token) are reported immediately.
func NewClient(ctx context.Context, url URLFunc, opts ...DialOpt) (*Client, error) {
	c := &Client{
		logger:  zerolog.Ctx(ctx),
		url:     url,
		opts:    opts,
		outMsgs: make(chan Message),
		done:    make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	c.setConn(conn)
	go c.relayMessages()

	return c, nil
}

func (c *Client) dial(ctx context.Context) (*Conn, error) {
	url, err := c.url(ctx)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, url, c.opts...)
}

func (c *Client) setConn(conn *Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(conn != nil)
}

func (c *Client) currentConn() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// IncomingMessages returns the client's channel that publishes data
// messages as they are received from the server, across reconnections.
// The channel is closed only by [Client.Close].
func (c *Client) IncomingMessages() <-chan Message {
	return c.outMsgs
}

// Connected reports whether the client currently has an open connection.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// SendText sends a UTF-8 text message to the server over the current
// connection. See [Conn.SendTextMessage] regarding the returned channel.
func (c *Client) SendText(data []byte) <-chan error {
	conn := c.currentConn()
	if conn == nil || conn.IsClosed() || conn.IsClosing() {
		err := make(chan error, 1)
		err <- errors.New("no open WebSocket connection")
		close(err)
		return err
	}
	return conn.SendTextMessage(data)
}

// Reconnect gracefully closes the current connection, which makes the
// client dial a new one. Used when the server announces that the current
// connection is about to be terminated.
func (c *Client) Reconnect() {
	if conn := c.currentConn(); conn != nil {
		conn.Close(StatusNormalClosure)
	}
}

// Close shuts down the client permanently: no reconnection
// is attempted, and the outgoing message channel is closed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if conn := c.currentConn(); conn != nil {
			conn.Close(StatusGoingAway)
		}
	})
}

// relayMessages runs as a [Client] goroutine, to route data [Message]s
// from the client's active [Conn] to the client's subscribers, and to
// replace the connection whenever it ends.
func (c *Client) relayMessages() {
	for {
		for msg := range c.currentConn().IncomingMessages() {
			c.outMsgs <- msg
		}

		c.setConn(nil)

		select {
		case <-c.done:
			close(c.outMsgs)
			return
		default:
		}

		c.redial()
		if c.currentConn() == nil { // Closed while redialing.
			close(c.outMsgs)
			return
		}
	}
}

// redial dials a new connection with a fresh URL, retrying with capped
// exponential backoff, until it succeeds or the client is closed.
func (c *Client) redial() {
	delay := initialRedialDelay
	for {
		ctx := c.logger.WithContext(context.Background())
		conn, err := c.dial(ctx)
		if err == nil {
			select {
			case <-c.done: // Closed while dialing.
				conn.Close(StatusGoingAway)
			default:
				c.logger.Info().Msg("reconnected WebSocket client")
				c.setConn(conn)
			}
			return
		}

		c.logger.Warn().Err(err).Dur("retry_in", delay).
			Msg("failed to reconnect WebSocket client")

		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		delay = min(delay*2, maxRedialDelay)
	}
}
