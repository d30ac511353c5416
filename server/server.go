// Package server exposes the run manager over HTTP. Identity travels in
// headers; everything else rides the run lifecycle.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	runx "github.com/fixwell/shop-agent/agent/run"
)

const (
	headerTenantID       = "X-Tenant-ID"
	headerUserID         = "X-User-ID"
	headerIdempotencyKey = "X-Idempotency-Key"
)

// RunService is the slice of the manager the HTTP layer needs.
type RunService interface {
	StartRun(ctx context.Context, req runx.StartRequest) (*runx.StartResult, error)
	Events(ctx context.Context, runID string) ([]runx.Event, error)
}

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type Server struct {
	runs RunService
}

func New(runs RunService) *Server {
	return &Server{runs: runs}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Use(identityMiddleware)
		r.Post("/", s.handleStartRun)
		r.Get("/{runID}/events", s.handleListEvents)
	})

	return r
}

// ListenAndServe blocks until ctx is cancelled, then drains.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := contractx.Identity{
			TenantID: strings.TrimSpace(r.Header.Get(headerTenantID)),
			UserID:   strings.TrimSpace(r.Header.Get(headerUserID)),
		}
		next.ServeHTTP(w, r.WithContext(runx.WithIdentity(r.Context(), id)))
	})
}

type startRunRequest struct {
	Planner string         `json:"planner,omitempty"`
	Goal    string         `json:"goal"`
	Context map[string]any `json:"context,omitempty"`
}

type startRunResponse struct {
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	AlreadyExisted bool   `json:"already_existed"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var body startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.runs.StartRun(r.Context(), runx.StartRequest{
		Planner:        body.Planner,
		Goal:           contractx.PlanGoal{Text: body.Goal, Context: body.Context},
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotencyKey)),
	})
	if err != nil && result == nil {
		writeMappedError(w, err)
		return
	}

	// A planner failure still produced an auditable run; report it with
	// its terminal status rather than masking the run id.
	writeJSON(w, http.StatusOK, startRunResponse{
		RunID:          result.RunID,
		Status:         string(result.Status),
		AlreadyExisted: result.AlreadyExisted,
	})
}

type eventResponse struct {
	Seq     int            `json:"seq"`
	Kind    string         `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Tool    string         `json:"tool,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
	Output  map[string]any `json:"output,omitempty"`
	Message string         `json:"message,omitempty"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	events, err := s.runs.Events(r.Context(), runID)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{
			Seq:     ev.Seq,
			Kind:    ev.Kind,
			Text:    ev.Text,
			Tool:    ev.Tool,
			Input:   ev.Input,
			Output:  ev.Output,
			Message: ev.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "events": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, contractx.ErrNoActiveTenant):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, contractx.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, contractx.ErrUnknownTool),
		errors.Is(err, contractx.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, runx.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled request error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
