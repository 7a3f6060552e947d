package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"itemcrud/internal/activity"
	"itemcrud/internal/item"
	"itemcrud/internal/service"
	"itemcrud/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler handles HTTP requests for items and the activity log.
type Handler struct {
	items    *service.ItemService
	activity *activity.Recorder
	store    store.Store
	logger   *zap.Logger
}

// NewHandler creates a Handler with dependencies.
func NewHandler(items *service.ItemService, recorder *activity.Recorder, s store.Store, logger *zap.Logger) *Handler {
	return &Handler{items: items, activity: recorder, store: s, logger: logger}
}

// handleCreateItem processes POST /items.
func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var p item.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	it, err := h.items.Create(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/items/%s", it.ID))
	h.writeJSON(w, http.StatusCreated, it)
}

// handleListItems processes GET /items.
func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// handleGetItem processes GET /items/{id}.
func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, it)
}

// handleUpdateItem processes PUT /items/{id}.
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var p item.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	it, err := h.items.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, it)
}

// handleDeleteItem processes DELETE /items/{id}.
func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Item deleted"})
}

// handleAddComment processes POST /items/{id}/comments.
func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var p item.CommentPayload
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.items.AddComment(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

// handleListActivity processes GET /activity. Entries are oldest first.
func (h *Handler) handleListActivity(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.activity.ReadAll())
}

// handleHealth reports whether the document store is reachable.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// writeJSON encodes v with the given status.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("error encoding response", zap.Error(err))
	}
}

// decodeJSON reads exactly one JSON value from the request body into v.
// Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return item.Invalid("body", item.ReasonInvalid, fmt.Sprintf("invalid request payload: %v", err))
	}
	if err := ensureSingleJSON(dec); err != nil {
		return item.Invalid("body", item.ReasonInvalid, err.Error())
	}
	return nil
}

// ensureSingleJSON ensures only a single JSON object is in the request body.
func ensureSingleJSON(dec *json.Decoder) error {
	if t, err := dec.Token(); err != io.EOF || t != nil {
		return fmt.Errorf("request body must only contain a single JSON object")
	}
	return nil
}
