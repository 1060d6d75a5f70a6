// Package health exposes the bot's liveness over HTTP, for container
// healthchecks. Unlike a trivial "can the binary run" probe, it reports
// unhealthy whenever the Socket Mode connection is down, so outages are
// actually detectable from outside the container.
package health

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const timeout = 3 * time.Second

// Checker reports whether the bot currently considers itself healthy.
type Checker func() bool

// Server is a minimal HTTP server with a single "/healthz" endpoint.
type Server struct {
	port      int
	connected Checker
}

func NewServer(port int, connected Checker) *Server {
	return &Server{port: port, connected: connected}
}

// Run starts the health endpoint. This is blocking,
// so it's usually called in its own goroutine.
func (s *Server) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthzHandler)

	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(s.port)),
		Handler:      mux,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	log.Info().Msgf("health endpoint listening on port %d", s.port)
	err := server.ListenAndServe()
	if err != nil {
		log.Err(err).Send()
		return err
	}

	return nil
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	if !s.connected() {
		log.Warn().Msg("healthcheck failed: Socket Mode connection is down")
		http.Error(w, "disconnected", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
