package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/errs"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error kind to an HTTP status code.
func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindUnauthenticated, errs.KindInvalidToken, errs.KindSessionExpired,
		errs.KindAccountDisabled, errs.KindInvalidCredentials:
		return http.StatusUnauthorized
	case errs.KindValidation, errs.KindAlreadyExists:
		return http.StatusBadRequest
	case errs.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errMessage returns the client-facing text of err.
func errMessage(err error) string {
	e, ok := errs.As(err)
	if !ok {
		return errs.KindInternal.String()
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// writeError renders err. Server-side failures get a generic message and
// their cause is logged.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Wrap(errs.KindInternal, "", err)
	}
	status := statusOf(e.Kind)
	body := errorBody{Message: e.Message, RemainingAttempts: e.RemainingAttempts}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", e.Kind.String()),
			zap.Error(err),
		)
		body = errorBody{Message: "internal server error"}
		if e.Kind == errs.KindUpstreamStorage {
			body.Message = e.Message
		}
	}
	if body.Message == "" {
		body.Message = e.Kind.String()
	}
	writeJSON(w, status, body)
}
