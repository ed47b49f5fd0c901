// Package router classifies inbound edit requests and dispatches each one to
// exactly one provider adapter, then shapes and guards the adapter's output
// into the canonical response envelope. It owns the proxy's error taxonomy;
// no adapter error escapes this boundary unclassified.
package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/numeri/numeri/proxy/internal/guardrail"
	"github.com/numeri/numeri/proxy/internal/normalize"
	"github.com/numeri/numeri/proxy/pkg/contracts"
	"github.com/numeri/numeri/proxy/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxPayloadBytes is the serialized request-size ceiling, enforced before
// classification. Matches the 4.5 MiB platform limit the original
// deployment ran under.
const MaxPayloadBytes = 4_718_592

// DefaultVisionInstruction is synthesized when an image arrives without an
// instruction, so the vision adapter always has actionable intent.
const DefaultVisionInstruction = "Process this receipt and add it to the dataset."

// Dispatcher routes classified requests to the configured adapters.
type Dispatcher struct {
	logic  contracts.Adapter
	vision contracts.Adapter
	cross  contracts.Adapter
}

// New creates a dispatcher over the three route adapters.
func New(logic, vision, cross contracts.Adapter) *Dispatcher {
	return &Dispatcher{logic: logic, vision: vision, cross: cross}
}

// Classify picks the route for a request. Priority order is strict, first
// match wins: explicit agent header, multi-dataset body, image, text.
func Classify(req *models.EditRequest) models.Route {
	if req.TargetAgent == models.TargetAskOrchestrate {
		return models.RouteCrossAgent
	}
	if req.DataKeyCount() >= 2 {
		return models.RouteCrossAgent
	}
	if req.HasImage() {
		return models.RouteVision
	}
	if strings.TrimSpace(req.Prompt) != "" {
		return models.RouteLogic
	}
	return models.RouteNone
}

// Dispatch runs the full pipeline for one request: payload guard, classify,
// adapter call, normalize, and (on the logic/vision path) the integrity
// guardrail. Every failure comes back as a *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.EditRequest) (*models.Envelope, error) {
	if req.Size > MaxPayloadBytes {
		return nil, &Error{Category: CategoryTooLarge, Status: http.StatusRequestEntityTooLarge, Message: msgTooLarge}
	}

	route := Classify(req)
	if route == models.RouteNone {
		return nil, &Error{Category: CategoryRouting, Status: http.StatusBadRequest, Message: msgUnroutable}
	}

	var adapter contracts.Adapter
	switch route {
	case models.RouteCrossAgent:
		adapter = d.cross
	case models.RouteVision:
		adapter = d.vision
		if strings.TrimSpace(req.Prompt) == "" {
			req.Prompt = DefaultVisionInstruction
		}
	case models.RouteLogic:
		adapter = d.logic
	}

	dispatchID := uuid.New().String()
	start := time.Now()

	log.Info().
		Str("dispatch_id", dispatchID).
		Str("route", string(route)).
		Str("adapter", adapter.Name()).
		Int("rows", len(req.CurrentData)).
		Int("payload_bytes", req.Size).
		Msg("dispatching edit request")

	raw, err := adapter.Run(ctx, req)
	if err != nil {
		wrapped := wrapAdapterError(err)
		log.Error().
			Str("dispatch_id", dispatchID).
			Str("adapter", adapter.Name()).
			Str("category", string(wrapped.Category)).
			Err(err).
			Msg("adapter call failed")
		return nil, wrapped
	}

	env, err := d.shape(route, req, raw)
	if err != nil {
		wrapped := wrapAdapterError(err)
		log.Error().
			Str("dispatch_id", dispatchID).
			Str("adapter", adapter.Name()).
			Str("category", string(wrapped.Category)).
			Err(err).
			Msg("response shaping failed")
		return nil, wrapped
	}

	log.Info().
		Str("dispatch_id", dispatchID).
		Str("route", string(route)).
		Int("rows_out", len(env.Content)).
		Dur("duration", time.Since(start)).
		Msg("edit request complete")

	return env, nil
}

// shape turns raw adapter text into a complete envelope for the route.
func (d *Dispatcher) shape(route models.Route, req *models.EditRequest, raw string) (*models.Envelope, error) {
	if route == models.RouteCrossAgent {
		// An agentic answer may or may not be a revised dataset. When it
		// is not, the original dataset is echoed unchanged and the answer
		// becomes the explanation.
		if env, err := normalize.Normalize(raw); err == nil {
			return env, nil
		}
		explanation := strings.TrimSpace(raw)
		if explanation == "" {
			explanation = models.DefaultExplanation
		}
		return &models.Envelope{
			Filename:    models.DefaultFilename,
			Content:     echoRows(req.CurrentData),
			Explanation: explanation,
		}, nil
	}

	env, err := normalize.Normalize(raw)
	if err != nil {
		return nil, err
	}
	env.Content = guardrail.Enforce(req.CurrentData, env.Content)
	return env, nil
}

// echoRows never returns nil so the envelope's content stays an array.
func echoRows(rows []models.Row) []models.Row {
	if rows == nil {
		return []models.Row{}
	}
	return rows
}
