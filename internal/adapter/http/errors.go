package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/alerts"
	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// errBadJSON marks an undecodable request body.
var errBadJSON = errors.New("malformed JSON body")

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidLocation),
		errors.Is(err, advice.ErrEmptyQuestion),
		errors.Is(err, alerts.ErrMissingEmailColumn),
		errors.Is(err, alerts.ErrNoRecipients),
		errors.Is(err, alerts.ErrEmptyMessage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrModelNotTrained),
		errors.Is(err, advice.ErrAdvisorNotConfigured),
		errors.Is(err, alerts.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNoPrediction):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
