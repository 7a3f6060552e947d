package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"itemcrud/internal/item"
)

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, item.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, item.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": ...}. Validation errors also list their
// violations; unexpected errors are logged and reported generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	switch status {
	case http.StatusBadRequest:
		var ve *item.ValidationError
		if errors.As(err, &ve) {
			resp.Violations = ve.Violations
		}
	case http.StatusNotFound:
		resp.Error = "Item not found"
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		resp.Error = http.StatusText(http.StatusInternalServerError)
	}

	h.writeJSON(w, status, resp)
}
