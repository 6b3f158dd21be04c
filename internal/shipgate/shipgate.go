// Package shipgate is a small read-only status RPC for operator
// tooling: it answers "how many sessions/lobbies are currently live"
// over HTTP so a shipgate-status command (or a monitoring probe) can
// query a running core without attaching a debugger or parsing logs.
//
// The teacher's own shipgate package wired the equivalent status
// surface over gRPC with protoc-generated message/service stubs; this
// core drops gRPC/protobuf codegen (see DESIGN.md for why) and keeps
// the same Start/service/client shape, just over plain JSON-over-HTTPS
// using the TLS client-cert loading carried over from the teacher's
// loadX509Certificate/NewRPCClient.
package shipgate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the snapshot a running core reports: live connection
// count and lobby count, the two figures operator tooling actually
// needs.
type Status struct {
	SessionCount int       `json:"session_count"`
	LobbyCount   int       `json:"lobby_count"`
	StartedAt    time.Time `json:"started_at"`
}

// StatsProvider is implemented by whatever owns the event loop (the
// core's top-level wiring) and knows the live counts; shipgate never
// touches session/lobby state directly, mirroring how the teacher's
// service struct only ever read from its own connectedShips map
// rather than reaching into the block servers themselves.
type StatsProvider interface {
	Status() Status
}

// Server answers GET /status with the StatsProvider's current Status
// as JSON.
type Server struct {
	logger   *logrus.Logger
	provider StatsProvider
	http     *http.Server
}

// Start begins serving on addr and blocks until ctx is canceled, then
// gracefully shuts down — the same Start(ctx, logger, addr, ready,
// err) shape the teacher's gRPC Start used, with http.Server.Shutdown
// standing in for grpcServer.GracefulStop.
func Start(ctx context.Context, logger *logrus.Logger, addr string, provider StatsProvider, tlsConfig *tls.Config, readyChan chan bool, errChan chan error) {
	mux := http.NewServeMux()
	s := &Server{logger: logger, provider: provider}
	mux.HandleFunc("/status", s.handleStatus)

	s.http = &http.Server{Addr: addr, Handler: mux, TLSConfig: tlsConfig}

	go func() {
		logger.Printf("SHIPGATE waiting for requests on %s", addr)

		var err error
		if tlsConfig != nil {
			err = s.http.ListenAndServeTLS("", "")
		} else {
			err = s.http.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("error starting shipgate status service on %s: %w", addr, err)
			return
		}
		close(errChan)
	}()

	readyChan <- true
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("SHIPGATE error during shutdown: %s", err)
	}
	logger.Printf("SHIPGATE server exited")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.Status()); err != nil {
		s.logger.Errorf("SHIPGATE error encoding status response: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// LoadServerTLSConfig loads the shipgate server's X.509 certificate
// and private key, carried over from the teacher's
// loadX509Certificate, generalized to take explicit paths instead of
// reading them from viper directly (internal/core's config layer owns
// that lookup now).
func LoadServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading X.509 certificate: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
