package helper

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

// CommandObserver is notified after every executed command.
type CommandObserver interface {
	CommandExecuted(kind model.FailureKind, elapsed time.Duration)
}

// Server exposes an Executor over HTTP on an authorized listener.
type Server struct {
	executor *Executor
	observer CommandObserver
	version  string
	metrics  http.Handler
}

func NewServer(executor *Executor, observer CommandObserver, version string) *Server {
	return &Server{executor: executor, observer: observer, version: version}
}

// ServeMetrics exposes h at MetricsPath. Only authorized clients can reach it.
func (s *Server) ServeMetrics(h http.Handler) {
	s.metrics = h
}

// Handler returns the helper's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+CommandPath, s.runCommand)
	mux.HandleFunc("GET "+HealthPath, s.health)
	if s.metrics != nil {
		mux.Handle("GET "+MetricsPath, s.metrics)
	}
	return mux
}

// Serve answers requests on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runCommand handles POST /v1/command
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid command request body", "error", err)
		writeJSON(w, http.StatusBadRequest, CommandResponse{Output: "Invalid request: " + err.Error(), Kind: model.FailureTransport})
		return
	}
	if req.Command == "" {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Output: "Invalid request: empty command", Kind: model.FailureTransport})
		return
	}

	log.Info("Executing command", "command", req.Command)
	start := time.Now()
	// a client hanging up does not stop a command that already started
	result := s.executor.Execute(context.WithoutCancel(r.Context()), req.Command)
	elapsed := time.Since(start)
	if s.observer != nil {
		s.observer.CommandExecuted(result.Kind, elapsed)
	}
	log.Debug("Command output", "command", req.Command, "output", result.Output, "kind", result.Kind)

	resp := CommandResponse{Output: result.Output}
	if result.Kind == model.FailureTimeout {
		resp.Kind = result.Kind
	}
	writeJSON(w, http.StatusOK, resp)
}

// health handles GET /v1/health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", PID: os.Getpid(), Version: s.version})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
