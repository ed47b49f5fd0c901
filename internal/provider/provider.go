// Package provider implements the outbound adapters for the AI backends the
// proxy can route to: IBM watsonx text generation (logic and vision models),
// IBM watsonx Orchestrate agents, and Google Gemini. Each adapter wraps one
// provider's wire format behind the contracts.Adapter interface; the router
// never sees a concrete provider type.
package provider

import (
	"fmt"
	"time"
)

// callTimeout bounds every outbound provider call. Expired calls are
// cancelled and surface as provider failures; they are not retried.
const callTimeout = 30 * time.Second

// Error carries the HTTP status and raw error body from a failed provider
// call so the failure can be diagnosed server-side while the client sees a
// generic message.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }
