package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	middleware "github.com/markdave123-py/Learnify/internal/api/middlewares"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/billing"
	"github.com/markdave123-py/Learnify/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response failed", "err", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError answers with the status that matches err. Unknown errors are logged and
// reported as a plain 500 so internals never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeMessage(w, status, "internal server error")
		return
	}
	if status == http.StatusBadGateway {
		logger.Error("ai providers failed", "path", r.URL.Path, "err", err)
		writeMessage(w, status, core.ErrProvidersExhausted.Error())
		return
	}
	writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrSubscriptionRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrNoText), errors.Is(err, core.ErrNothingGenerated):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUploadLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrProvidersExhausted), errors.Is(err, core.ErrRateLimited):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "user_id not found in context")
	}
	return id, ok
}
