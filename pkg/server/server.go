// Package server exposes the run control surface over HTTP: start a goal,
// stop it, and poll its status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arnavsurve/deskagent/pkg/agent"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

// RunController is the part of agent.Controller the server drives.
type RunController interface {
	Start(goal string) (agent.Status, error)
	Stop() bool
	Status() agent.Status
}

type Server struct {
	controller RunController
	logger     types.Logger
	logsDir    string
	now        func() time.Time
}

func New(controller RunController, logger types.Logger, logsDir string) *Server {
	return &Server{
		controller: controller,
		logger:     logger,
		logsDir:    logsDir,
		now:        time.Now,
	}
}

type startRequest struct {
	Goal string `json:"goal"`
}

type statusResponse struct {
	agent.Status
	LogsDir string `json:"logs_dir"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /agent/start", s.handleStart)
	mux.HandleFunc("POST /agent/stop", s.handleStop)
	mux.HandleFunc("GET /agent/status", s.handleStatus)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st, err := s.controller.Start(req.Goal)
	switch {
	case errors.Is(err, agent.ErrEmptyGoal):
		writeError(w, http.StatusBadRequest, "No goal provided")
		return
	case errors.Is(err, agent.ErrAlreadyRunning):
		writeError(w, http.StatusBadRequest, "Agent is already running")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to start agent")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info().Str("goal", st.Goal).Str("run_id", st.RunID).Msg("Agent started")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Agent started",
		"goal":    st.Goal,
		"run_id":  st.RunID,
		"status":  "running",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.controller.Stop() {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Agent is not running"})
		return
	}
	s.logger.Info().Msg("Agent stop requested")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Agent stop requested",
		"status":  "stopping",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  s.controller.Status(),
		LogsDir: s.logsDir,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// ListenAndServe serves the control surface on addr until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, allowedOrigins []string) error {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(s.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("Starting control server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("control server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info().Msg("Shutting down control server")
		s.controller.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
