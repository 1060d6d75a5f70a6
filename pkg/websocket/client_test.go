package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	done := make(chan struct{})

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("failed to hijack connection: %v", err)
			return
		}
		defer conn.Close()

		_, _ = conn.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\nConnection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: BACScCJPNqyz+UBoqMH89VmURoA=\r\n\r\n"))

		// Keep the connection open until the end of the test.
		<-done
	}))
	defer s.Close()
	defer close(done) // Release the handler before the server waits for it.

	url := func(_ context.Context) (string, error) {
		return s.URL, nil
	}

	c, err := NewClient(t.Context(), url, withTestNonceGen())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	if !c.Connected() {
		t.Error("Client.Connected() = false after successful dial")
	}
}

func TestNewClientURLError(t *testing.T) {
	url := func(_ context.Context) (string, error) {
		return "", errors.New("no URL for you")
	}

	if _, err := NewClient(t.Context(), url); err == nil {
		t.Error("NewClient() error = nil, want an error")
	}
}

func TestNewClientHandshakeFailure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer s.Close()

	url := func(_ context.Context) (string, error) {
		return s.URL, nil
	}

	if _, err := NewClient(t.Context(), url, withTestNonceGen()); err == nil {
		t.Error("NewClient() error = nil, want an error")
	}
}

func TestClientSendTextDuringClosure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("failed to hijack connection: %v", err)
			return
		}
		defer conn.Close()

		_, _ = conn.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\nConnection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: BACScCJPNqyz+UBoqMH89VmURoA=\r\n\r\n"))

		// Initiate the closing handshake right away, and drain the
		// client's frames until it releases the connection.
		_, _ = conn.Write([]byte{0x88, 0x02, 0x03, 0xE8})
		_, _ = io.Copy(io.Discard, conn)
	}))
	defer s.Close()

	url := func(_ context.Context) (string, error) {
		return s.URL, nil
	}

	c, err := NewClient(t.Context(), url, withTestNonceGen())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer c.Close()

	// Keep sending while the server closes the connection under us:
	// sends must start failing cleanly, without panicking the process.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := <-c.SendText([]byte("data")); err != nil {
			return
		}
	}
	t.Error("Client.SendText() kept succeeding after the server closed the connection")
}

func TestClientSendTextWithoutConn(t *testing.T) {
	c := &Client{}
	if err := <-c.SendText([]byte("data")); err == nil {
		t.Error("Client.SendText() error = nil, want an error")
	}
}
