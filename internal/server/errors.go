package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"lifeline/internal/cascade"
	"lifeline/internal/domain"
)

// errorEnvelope is the body of every non-2xx response:
// {"error":{"code":...,"message":...,"details":{...}}}.
type errorEnvelope struct {
	status int
	Err    errorBody `json:"error"`
}

type errorBody struct {
	Code    string         `json:"code" example:"cascade_required"`
	Message string         `json:"message" example:"persona p1 has 2 workstream(s) and 5 task(s)"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *errorEnvelope) GetStatus() int { return e.status }
func (e *errorEnvelope) Error() string  { return e.Err.Message }

func envelope(status int, code, message string, details map[string]any) *errorEnvelope {
	if code == "" {
		code = codeFor(status)
	}
	return &errorEnvelope{status: status, Err: errorBody{Code: code, Message: message, Details: details}}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "bad_request"
	case http.StatusInternalServerError:
		return "internal_error"
	}
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// installErrorEnvelope routes huma's own errors (bad params, body schema
// failures) through the envelope. Schema failures are reported as 400 like
// domain validation errors.
func installErrorEnvelope() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			details = map[string]any{"errors": msgs}
		}
		return envelope(status, "", msg, details)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		return huma.NewError(status, msg, errs...)
	}
}

// handleError maps engine errors onto HTTP statuses.
func handleError(err error) huma.StatusError {
	var (
		blocked *cascade.BlockedError
		invalid *domain.ValidationError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &blocked):
		return envelope(http.StatusConflict, "cascade_required", err.Error(), map[string]any{
			"kind":             string(blocked.Kind),
			"id":               blocked.ID,
			"workstream_count": blocked.Deps.WorkstreamCount,
			"task_count":       blocked.Deps.TaskCount,
		})
	case errors.As(err, &invalid):
		var details map[string]any
		if invalid.Field != "" {
			details = map[string]any{"field": invalid.Field}
		}
		return envelope(http.StatusBadRequest, "", invalid.Error(), details)
	case errors.Is(err, domain.ErrNotFound):
		return envelope(http.StatusNotFound, "", err.Error(), nil)
	}
	return envelope(http.StatusInternalServerError, "", "internal error", map[string]any{"error": err.Error()})
}
