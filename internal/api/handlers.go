// Package api exposes HTTP handlers for the migration service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/migration/internal/migration"
	"example.com/migration/internal/source"
)

// Handler coordinates HTTP requests with the migration orchestrator.
type Handler struct {
	orchestrator *migration.Orchestrator
}

// NewHandler builds a Handler.
func NewHandler(orchestrator *migration.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/migration/connect", h.connect)
	mux.HandleFunc("/v1/migration/dry-run", h.dryRun)
	mux.HandleFunc("/v1/migration/activities", h.migrateActivities)
	mux.HandleFunc("/v1/migration/timeslices", h.migrateTimeslices)
	mux.HandleFunc("/v1/migration/notes", h.migrateNotes)
	mux.HandleFunc("/v1/migration/states", h.migrateStates)
	mux.HandleFunc("/v1/migration/run", h.runFull)
	mux.HandleFunc("/v1/migration/reset", h.reset)
	mux.HandleFunc("/v1/migration/cleanup", h.cleanup)
	mux.HandleFunc("/v1/migration/status", h.status)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ConnectRequest is the payload for POST /v1/migration/connect.
type ConnectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate ensures request correctness.
func (r ConnectRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// MigrateRequest carries the activity mappings for the phases that need them.
type MigrateRequest struct {
	Mappings []migration.ActivityMapping `json:"mappings"`
}

// PhaseResponse reports one phase's outcome.
type PhaseResponse struct {
	Phase  string                `json:"phase"`
	Result migration.PhaseResult `json:"result"`
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.orchestrator.Initialize(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadGateway, "connect_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) dryRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	counts, err := h.orchestrator.DryRun(r.Context())
	if err != nil {
		writeMigrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) migrateActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if len(req.Mappings) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "mappings are required")
		return
	}

	result, err := h.orchestrator.MigrateActivities(r.Context(), req.Mappings)
	if err != nil {
		writeMigrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhaseResponse{Phase: migration.PhaseActivities.String(), Result: result})
}

func (h *Handler) migrateTimeslices(w http.ResponseWriter, r *http.Request) {
	h.runDependentPhase(w, r, migration.PhaseTimeslices, h.orchestrator.MigrateTimeslices)
}

func (h *Handler) migrateNotes(w http.ResponseWriter, r *http.Request) {
	h.runDependentPhase(w, r, migration.PhaseNotes, h.orchestrator.MigrateNotes)
}

func (h *Handler) migrateStates(w http.ResponseWriter, r *http.Request) {
	h.runDependentPhase(w, r, migration.PhaseStates, h.orchestrator.MigrateStates)
}

func (h *Handler) runDependentPhase(
	w http.ResponseWriter,
	r *http.Request,
	phase migration.Phase,
	run func(ctx context.Context, progress migration.ProgressFunc) (migration.PhaseResult, error),
) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	result, err := run(r.Context(), nil)
	if err != nil {
		writeMigrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhaseResponse{Phase: phase.String(), Result: result})
}

func (h *Handler) runFull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req MigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if len(req.Mappings) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "mappings are required")
		return
	}

	progress, err := h.orchestrator.RunFull(r.Context(), req.Mappings, nil)
	if err != nil {
		writeMigrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	h.orchestrator.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	if err := h.orchestrator.Cleanup(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, h.orchestrator.Status())
}

// writeMigrationError maps the pipeline's sentinel errors to HTTP statuses.
func writeMigrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, migration.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, migration.ErrActivitiesFirst), errors.Is(err, migration.ErrTimeslicesFirst):
		writeError(w, http.StatusPreconditionFailed, "dependency_not_met", err.Error())
	case errors.Is(err, source.ErrNotConnected):
		writeError(w, http.StatusUnauthorized, "not_connected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
