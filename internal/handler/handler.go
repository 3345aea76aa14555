// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/service"
)

// RunHandler holds all HTTP handlers for the run sign-up API.
type RunHandler struct {
	runs     *service.RunService
	reg      *service.RegistrationService
	accounts *service.AccountService
}

// NewRunHandler constructs a RunHandler.
func NewRunHandler(runs *service.RunService, reg *service.RegistrationService, accounts *service.AccountService) *RunHandler {
	return &RunHandler{runs: runs, reg: reg, accounts: accounts}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeOutcome(w http.ResponseWriter, status int, outcome model.Outcome, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Outcome: outcome})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeRunJSON decodes a run write. Read-only fields of a Run or RunStatus
// (id, signup_count, ...) are ignored so a fetched run can be sent back as is.
func decodeRunJSON(w http.ResponseWriter, r *http.Request, dst *model.CreateRunRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

// viewerID is the authenticated user's id, or "" for anonymous requests.
func viewerID(r *http.Request) string {
	if u, ok := UserFrom(r.Context()); ok {
		return u.ID
	}
	return ""
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

// ListRuns handles GET /runs
// Returns every run with its occupancy and, for an authenticated viewer,
// whether they are signed up.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.reg.ListRunsWithStatus(r.Context(), viewerID(r))
	if err != nil {
		log.ErrorErr(log.CatHTTP, "Failed to list runs", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if runs == nil {
		runs = []model.RunStatus{}
	}

	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.reg.RunStatus(r.Context(), id, viewerID(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		log.ErrorErr(log.CatHTTP, "Failed to get run", err, "run_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// CreateRun handles POST /runs (organizer)
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRunRequest
	if err := decodeRunJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := h.runs.CreateRun(r.Context(), req)
	if err != nil {
		h.runError(w, err, "failed to create run")
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// UpdateRun handles PUT /runs/{id} (organizer)
func (h *RunHandler) UpdateRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateRunRequest
	if err := decodeRunJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := h.runs.UpdateRun(r.Context(), id, req)
	if err != nil {
		h.runError(w, err, "failed to update run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// DeleteRun handles DELETE /runs/{id} (organizer)
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.runs.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.runError(w, err, "failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RunHandler) runError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case service.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, repository.ErrCapacityBelowSignups):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.ErrorErr(log.CatHTTP, fallback, err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ─── Registration ─────────────────────────────────────────────────────────────

// Register handles POST /runs/{id}/signup
// Signs the authenticated user up for the run.
func (h *RunHandler) Register(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id := chi.URLParam(r, "id")

	signup, err := h.reg.Register(r.Context(), user.ID, id)
	outcome := service.OutcomeOf(err, model.OutcomeRegistered)
	switch outcome {
	case model.OutcomeRegistered:
		writeJSON(w, http.StatusCreated, model.RegistrationResponse{
			Outcome: outcome,
			SignUp:  signup,
			Message: "Successfully signed up for this run.",
		})
	case model.OutcomeNotFound:
		writeOutcome(w, http.StatusNotFound, outcome, "run not found")
	case model.OutcomeAlreadyRegistered:
		writeOutcome(w, http.StatusConflict, outcome, "You are already signed up for this run.")
	case model.OutcomeRunFull:
		writeOutcome(w, http.StatusConflict, outcome, "Sorry, this run is full.")
	default:
		if service.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeOutcome(w, http.StatusInternalServerError, outcome, "failed to sign up")
	}
}

// Cancel handles DELETE /runs/{id}/signup
// Cancels the authenticated user's sign-up.
func (h *RunHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	id := chi.URLParam(r, "id")

	err := h.reg.Cancel(r.Context(), user.ID, id)
	outcome := service.OutcomeOf(err, model.OutcomeCancelled)
	switch outcome {
	case model.OutcomeCancelled:
		writeJSON(w, http.StatusOK, model.RegistrationResponse{
			Outcome: outcome,
			Message: "Your sign-up has been cancelled.",
		})
	case model.OutcomeNotFound:
		writeOutcome(w, http.StatusNotFound, outcome, "run not found")
	case model.OutcomeNotRegistered:
		writeOutcome(w, http.StatusConflict, outcome, "You are not signed up for this run.")
	default:
		if service.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeOutcome(w, http.StatusInternalServerError, outcome, "failed to cancel sign-up")
	}
}

// ListSignUps handles GET /runs/{id}/signups (organizer)
func (h *RunHandler) ListSignUps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	signups, err := h.reg.ListSignUps(r.Context(), id)
	if err != nil {
		h.runError(w, err, "failed to list sign-ups")
		return
	}

	if signups == nil {
		signups = []model.SignUp{}
	}

	writeJSON(w, http.StatusOK, signups)
}

// MarkAttendance handles PUT /runs/{id}/signups/{userID}/attendance (organizer)
func (h *RunHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")

	var req model.AttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	signup, err := h.reg.MarkAttendance(r.Context(), id, userID, req.Attended)
	if err != nil {
		if errors.Is(err, repository.ErrNotRegistered) {
			writeOutcome(w, http.StatusNotFound, model.OutcomeNotRegistered, "user is not signed up for this run")
			return
		}
		h.runError(w, err, "failed to mark attendance")
		return
	}

	writeJSON(w, http.StatusOK, signup)
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

// CreateAccount handles POST /accounts
func (h *RunHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		switch {
		case service.IsValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.ErrorErr(log.CatHTTP, "Failed to create account", err)
			writeError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
