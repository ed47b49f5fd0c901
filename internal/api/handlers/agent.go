// Package handlers implements the HTTP handlers for the Numeri agent proxy.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/numeri/numeri/proxy/internal/api/middleware"
	"github.com/numeri/numeri/proxy/internal/router"
	"github.com/numeri/numeri/proxy/pkg/models"

	"github.com/rs/zerolog/log"
)

// Dispatcher is the routing pipeline behind POST /api/agent.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *models.EditRequest) (*models.Envelope, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Dispatcher Dispatcher

	// Production suppresses internal error detail in responses.
	Production bool
}

// New creates a Handlers instance.
func New(d Dispatcher, production bool) *Handlers {
	return &Handlers{Dispatcher: d, Production: production}
}

// Agent serves POST /api/agent: parse the body into an edit request and run
// it through the dispatcher. All error mapping to HTTP statuses happens in
// the dispatcher's taxonomy; this handler only translates it to the wire.
func (h *Handlers) Agent(w http.ResponseWriter, r *http.Request) {
	// One byte over the ceiling is enough to distinguish "at the limit"
	// from "past it"; the dispatcher re-checks the exact serialized size.
	body, err := io.ReadAll(io.LimitReader(r.Body, router.MaxPayloadBytes+1))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Gagal membaca body permintaan.", err)
		return
	}

	// Oversize bodies are rejected before any parsing or classification.
	if len(body) > router.MaxPayloadBytes {
		h.respondError(w, http.StatusRequestEntityTooLarge, "Payload terlalu besar. Maksimum 4.5MB.", nil)
		return
	}

	req, err := models.ParseEditRequest(body, middleware.GetTargetAgent(r.Context()))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Body permintaan bukan JSON yang valid.", err)
		return
	}

	env, err := h.Dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		var routeErr *router.Error
		if errors.As(err, &routeErr) {
			h.respondError(w, routeErr.Status, routeErr.Message, routeErr.Err)
			return
		}
		// The dispatcher classifies everything; reaching this is a bug.
		log.Error().Err(err).Msg("unclassified dispatch error")
		h.respondError(w, http.StatusInternalServerError, "Terjadi kesalahan internal. Silakan coba lagi.", err)
		return
	}

	respondJSON(w, http.StatusOK, env)
}

// MethodNotAllowed keeps non-POST callers on the JSON error contract.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, models.ErrorBody{Error: "Method not allowed"})
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string, err error) {
	body := models.ErrorBody{Error: message}
	if !h.Production && err != nil {
		body.Details = err.Error()
	}
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
