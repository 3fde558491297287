// Command statusmanagerd hosts the public HTTP read endpoint spec §6
// names as an external collaborator: GET /{statusCredentialId}. It is
// illustrative plumbing around internal/statusmanager's core, not
// itself in scope for the invariants in spec §8.
//
// Grounded on the teacher's cmd/fullnode/main.go: env-var-with-defaults
// server configuration, gorilla/mux routing, and a signal-driven
// graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/statuslog"
	"github.com/ParichayaHQ/credence/internal/statusmanager"
)

var log = statuslog.For("statusmanagerd")

// ServerConfig holds the HTTP server's own configuration, separate from
// statusmanager.Options.
type ServerConfig struct {
	Address      string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns sensible HTTP server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:      "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func main() {
	serverConfig := DefaultServerConfig()
	if addr := os.Getenv("STATUSMANAGERD_ADDRESS"); addr != "" {
		serverConfig.Address = addr
	}
	if portStr := os.Getenv("STATUSMANAGERD_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}

	managerOpts := statusmanager.LoadOptionsFromEnv()
	manager, err := statusmanager.New(context.Background(), *managerOpts)
	if err != nil {
		log.WithError(err).Fatal("failed to bootstrap status manager")
	}
	defer manager.Close()

	server := &Server{manager: manager, config: serverConfig}
	if err := server.Start(); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("server stopped")
}

// Server wraps the status manager with an HTTP API.
type Server struct {
	manager *statusmanager.Manager
	config  *ServerConfig
	server  *http.Server
}

// Start launches the HTTP server in the background.
func (s *Server) Start() error {
	router := s.setupRoutes()
	handler := cors.Default().Handler(router)

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.WithField("address", addr).Info("starting statusmanagerd")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/{statusCredentialId}", s.handleGetStatusCredential).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleGetStatusCredential(w http.ResponseWriter, r *http.Request) {
	statusCredentialID := mux.Vars(r)["statusCredentialId"]

	rec, err := s.manager.GetStatusCredential(r.Context(), statusCredentialID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rec.Credential); err != nil {
		log.WithError(err).Error("failed to encode status credential response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if merrors.IsNotFound(err) {
		status = http.StatusNotFound
	} else if merrors.IsBadRequest(err) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
