// Package contracts defines the small interfaces shared between the router,
// the provider adapters, and the credential manager. The router depends only
// on these interfaces, never on concrete provider types.
package contracts

import (
	"context"

	"github.com/numeri/numeri/proxy/pkg/models"
)

// Adapter encapsulates one external AI provider's request/response contract.
// Run performs the outbound call(s) and returns the provider's raw text
// output; shaping that text into an Envelope is the normalizer's job.
type Adapter interface {
	// Name identifies the adapter in logs and traces.
	Name() string

	// Run executes the adapter against a classified edit request.
	Run(ctx context.Context, req *models.EditRequest) (string, error)
}

// TokenSource yields a valid bearer credential. Implementations never return
// an expired token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
