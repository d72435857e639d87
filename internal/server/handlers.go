package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/clipcast/clipcast-api/internal/job"
	"github.com/clipcast/clipcast-api/internal/user"
	"github.com/clipcast/clipcast-api/internal/workflow"
)

// Enqueuer accepts workflow trigger events for background execution.
type Enqueuer interface {
	Enqueue(ev workflow.Event) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	jobs      job.Repository
	ledger    user.Ledger
	events    Enqueuer
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(jobs job.Repository, ledger user.Ledger, events Enqueuer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		jobs:      jobs,
		ledger:    ledger,
		events:    events,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// RegisterJob handles POST /jobs requests. It records an uploaded
// recording for a user and returns the storage key the (external) upload
// flow must write the source to.
func (h *Handlers) RegisterJob(w http.ResponseWriter, r *http.Request) {
	var req RegisterJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	// The owner must hold an account before any job can reference it.
	if _, err := h.ledger.Credits(r.Context(), req.UserID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
			return
		}
		h.logger.Error("failed to read balance",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read balance", "LEDGER_READ_FAILED")
		return
	}

	j := job.New(req.UserID)
	if err := h.jobs.Create(r.Context(), j); err != nil {
		h.logger.Error("failed to create job",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	h.logger.Info("job registered",
		slog.String("job_id", j.ID),
		slog.String("user_id", j.UserID),
	)

	writeJSON(w, http.StatusCreated, RegisterJobResponse{
		ID:         j.ID,
		UserID:     j.UserID,
		StorageKey: j.StorageKey,
		Status:     string(j.Status),
	})
}

// ProcessJob handles POST /jobs/{id}/process requests. It validates the
// trigger and enqueues a workflow event; processing happens in the
// background and the job's status records the outcome.
func (h *Handlers) ProcessJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	var req ProcessJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	j, err := h.jobs.FindByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	if j.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "job already reached a terminal status", "JOB_TERMINAL")
		return
	}

	ev := workflow.Event{
		JobID:        j.ID,
		UserID:       j.UserID,
		RequestedCap: req.MaxClips,
	}
	if err := h.events.Enqueue(ev); err != nil {
		if errors.Is(err, workflow.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "event queue is full, retry later", "QUEUE_FULL")
			return
		}
		h.logger.Error("failed to enqueue event",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to enqueue event", "ENQUEUE_FAILED")
		return
	}

	h.logger.Info("processing triggered",
		slog.String("job_id", j.ID),
		slog.String("user_id", j.UserID),
		slog.Int("max_clips", req.MaxClips),
	)

	writeJSON(w, http.StatusAccepted, ProcessJobResponse{
		JobID:  j.ID,
		Status: string(j.Status),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	j, err := h.jobs.FindByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:         j.ID,
		UserID:     j.UserID,
		StorageKey: j.StorageKey,
		Status:     string(j.Status),
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	})
}

// ListClips handles GET /jobs/{id}/clips requests.
func (h *Handlers) ListClips(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if _, err := h.jobs.FindByID(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	clips, err := h.jobs.ListClipsByJob(r.Context(), jobID)
	if err != nil {
		h.logger.Error("failed to list clips",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list clips", "CLIP_LIST_FAILED")
		return
	}

	resp := make([]ClipResponse, 0, len(clips))
	for _, c := range clips {
		resp = append(resp, ClipResponse{
			ID:         c.ID,
			JobID:      c.JobID,
			StorageKey: c.StorageKey,
			CreatedAt:  c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCredits handles GET /users/{id}/credits requests.
func (h *Handlers) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required", "MISSING_USER_ID")
		return
	}

	credits, err := h.ledger.Credits(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
			return
		}
		h.logger.Error("failed to read balance",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read balance", "LEDGER_READ_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, CreditsResponse{
		UserID:  userID,
		Credits: credits,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
