package websocket

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// keyGUID is a fixed value that servers append to the client's nonce
// when computing the "Sec-WebSocket-Accept" response header, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3.
const keyGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// DialOpt customizes the behavior of [Dial].
type DialOpt func(*Conn)

// WithHTTPClient replaces the default HTTP client used for the opening
// handshake. The given client is copied and adjusted, never modified.
func WithHTTPClient(hc http.Client) DialOpt {
	return func(c *Conn) {
		c.client = adjustHTTPClient(hc)
	}
}

// WithHeader adds an HTTP header to the opening handshake request,
// e.g. for authentication.
func WithHeader(key, value string) DialOpt {
	return func(c *Conn) {
		c.headers.Add(key, value)
	}
}

// withTestNonceGen makes the handshake nonce deterministic, for unit tests.
func withTestNonceGen() DialOpt {
	return func(c *Conn) {
		c.nonceGen = strings.NewReader("0123456789abcdef0123456789abcdef")
	}
}

// Dial performs the opening handshake defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-4, and if it
// succeeds it returns an open connection with active reader and writer
// goroutines. The URL scheme may be "ws", "wss", "http", or "https".
func Dial(ctx context.Context, url string, opts ...DialOpt) (*Conn, error) {
	c := &Conn{
		logger:   zerolog.Ctx(ctx),
		client:   adjustHTTPClient(http.Client{}),
		headers:  http.Header{},
		nonceGen: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}

	nonce, err := generateNonce(c.nonceGen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate handshake nonce: %w", err)
	}

	req, err := c.handshakeRequest(ctx, url, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to construct handshake request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send handshake request: %w", err)
	}

	if err := checkHandshakeResponse(resp, nonce); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("bad handshake response: %w", err)
	}

	rwc, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		resp.Body.Close()
		return nil, errors.New("handshake response body doesn't support writing")
	}

	c.closer = rwc
	c.bufio = bufio.NewReadWriter(bufio.NewReader(rwc), bufio.NewWriter(rwc))
	c.readC = make(chan Message)
	c.writeC = make(chan internalMessage)
	c.closed = make(chan struct{})

	go c.readMessages()
	go c.writeMessages()

	return c, nil
}

// adjustHTTPClient returns a copy of the given HTTP client which never
// follows redirects: handshake responses other than "101 Switching
// Protocols" are handshake failures, not requests to retry elsewhere.
func adjustHTTPClient(hc http.Client) *http.Client {
	hc.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &hc
}

// generateNonce returns a base64-encoded random 16-byte value, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.1.
func generateNonce(r io.Reader) (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// handshakeRequest constructs the HTTP request for the opening handshake,
// including any extra headers set with [WithHeader].
func (c *Conn) handshakeRequest(ctx context.Context, url, nonce string) (*http.Request, error) {
	// (net/http).Client rejects WebSocket URL schemes.
	if strings.HasPrefix(url, "ws://") {
		url = "http" + strings.TrimPrefix(url, "ws")
	}
	if strings.HasPrefix(url, "wss://") {
		url = "https" + strings.TrimPrefix(url, "wss")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", nonce)

	return req, nil
}

// checkHandshakeResponse verifies the server's opening handshake response,
// per https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func checkHandshakeResponse(resp *http.Response, nonce string) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	if err := checkHTTPHeader(resp.Header, "Upgrade", "websocket"); err != nil {
		return err
	}
	if err := checkHTTPHeader(resp.Header, "Connection", "Upgrade"); err != nil {
		return err
	}

	h := sha1.New() // SHA-1 is mandated by RFC 6455, it's not used for security here.
	h.Write([]byte(nonce + keyGUID))
	want := base64.StdEncoding.EncodeToString(h.Sum(nil))

	got := resp.Header.Get("Sec-WebSocket-Accept")
	if got != want {
		return fmt.Errorf("Sec-WebSocket-Accept = %q, want %q", got, want)
	}

	return nil
}

// checkHTTPHeader verifies that the given header contains
// the given value. Keys and values are case-insensitive.
func checkHTTPHeader(h http.Header, key, want string) error {
	got := h.Get(key)
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("HTTP header %q = %q, want %q", key, got, want)
	}
	return nil
}
