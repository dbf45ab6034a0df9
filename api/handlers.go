package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/warp/wfm-interface/config"
	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/sqlite"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still going. Runs never overlap.
var ErrRunInProgress = errors.New("a run is already in progress")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Runner *schedule.Runner
	Config *config.Config

	// Today is the reference date for range checks and prefill.
	Today func() schedule.Date

	validate *validator.Validate
	running  sync.Mutex
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, runner *schedule.Runner, cfg *config.Config) *Handler {
	return &Handler{
		Store:    store,
		Runner:   runner,
		Config:   cfg,
		Today:    schedule.Today,
		validate: validator.New(),
	}
}

// RunRange executes one run and records the range in the configuration
// history on success.
func (h *Handler) RunRange(ctx context.Context, req schedule.RunRequest) (*schedule.RunResult, error) {
	if !h.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer h.running.Unlock()

	res, err := h.Runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if h.Config != nil {
		// The run is committed; a stale prefill does not fail it.
		if err := h.Config.RecordRun(req.Range); err != nil {
			log.Printf("[API] Failed to save run history: %v", err)
		}
	}
	return res, nil
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// StartRun reconciles the requested range.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run request", err)
		return
	}

	req, err := h.buildRunRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	res, err := h.RunRange(r.Context(), req)
	if err != nil {
		writeError(w, runErrorStatus(err), "Run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(res))
}

func (h *Handler) buildRunRequest(body RunRequest) (schedule.RunRequest, error) {
	req := schedule.RunRequest{
		Range:           h.prefill(),
		Overwrite:       true,
		ResetExceptions: true,
	}
	if h.Config != nil {
		req.Overwrite = h.Config.Run.Overwrite
		req.ResetExceptions = h.Config.Run.ResetExceptions
	}

	if body.From != "" {
		from, err := schedule.ParseDate(body.From)
		if err != nil {
			return req, err
		}
		req.Range.From = from
		if body.To == "" {
			req.Range.To = from
		}
	}
	if body.To != "" {
		to, err := schedule.ParseDate(body.To)
		if err != nil {
			return req, err
		}
		req.Range.To = to
	}
	if body.Overwrite != nil {
		req.Overwrite = *body.Overwrite
	}
	if body.ResetExceptions != nil {
		req.ResetExceptions = *body.ResetExceptions
	}
	return req, req.Range.Validate()
}

func (h *Handler) prefill() schedule.DateRange {
	today := h.Today()
	if h.Config == nil {
		return schedule.DateRange{From: today, To: today}
	}
	return h.Config.NextRange(today)
}

func runErrorStatus(err error) int {
	var loadErr *schedule.LoadError
	switch {
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrInvalidRange), errors.Is(err, schedule.ErrFutureRange):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrRunAborted):
		return http.StatusServiceUnavailable
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListExceptions returns the exception report.
func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListExceptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exceptions", err)
		return
	}
	writeJSON(w, http.StatusOK, toExceptionDTOs(records))
}

// ListAssignments returns assignments between ?from and ?to (inclusive).
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to := from
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = schedule.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}

	assignments, err := h.Store.ListAssignments(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHistory returns the last processed range and the next prefill.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	next := h.prefill()
	dto := HistoryDTO{
		NextFrom: next.From.String(),
		NextTo:   next.To.String(),
	}
	if h.Config != nil {
		last := h.Config.History()
		dto.DateFrom = last.DateFrom
		dto.DateTo = last.DateTo
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
