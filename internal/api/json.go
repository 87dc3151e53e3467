package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/taskview"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error      string        `json:"error" validate:"required"`
	Field      string        `json:"field,omitempty"`
	Constraint string        `json:"constraint,omitempty"`
	Date       string        `json:"date,omitempty"`
	Tasks      []models.Task `json:"tasks,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeOpError maps a plan operation error to a response. tasks is the
// bucket the operation produced, returned on write failures so the client
// keeps its state.
func writeOpError(w http.ResponseWriter, op, date string, tasks []models.Task, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected YYYY-MM-DD"))
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:      ve.Error(),
			Field:      ve.Field,
			Constraint: ve.Constraint,
		})
	case apperr.IsWriteFailure(err):
		slog.Error(op+" failed to persist", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInsufficientStorage, errResponse{
			Error: "tasks could not be saved",
			Date:  date,
			Tasks: tasks,
		})
	default:
		slog.Error(op+" failed", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// readWarning is reported when stored plans were unreadable and an
// operation continued from an empty mapping.
const readWarning = "stored tasks could not be read; starting from an empty plan"

func bucketResponse(date string, tasks []models.Task, err error) TaskListResponse {
	if tasks == nil {
		tasks = []models.Task{}
	}
	resp := TaskListResponse{Date: date, Tasks: tasks, Stats: taskview.Stats(tasks)}
	if apperr.IsReadFailure(err) {
		resp.Warning = readWarning
	}
	return resp
}

// operationFailed reports whether err should fail the request. Read
// failures are warnings: the operation went ahead from empty data.
func operationFailed(err error) bool {
	return err != nil && !apperr.IsReadFailure(err)
}
