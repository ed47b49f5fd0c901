package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/numeri/numeri/proxy/internal/iam"
	"github.com/numeri/numeri/proxy/internal/normalize"
	"github.com/numeri/numeri/proxy/internal/provider"
)

// Category names one bucket of the proxy error taxonomy.
type Category string

const (
	CategoryRouting   Category = "routing"
	CategoryTooLarge  Category = "payload_too_large"
	CategoryAuth      Category = "authentication"
	CategoryProvider  Category = "provider"
	CategoryParse     Category = "parse"
	CategoryStructure Category = "structure"
	CategoryInternal  Category = "internal"
)

// Error is the only error type that escapes the dispatcher. Message is safe
// to show to the caller; the wrapped error carries internal diagnostics that
// are only exposed in non-production deployments.
type Error struct {
	Category Category
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// User-facing messages. The frontend speaks Bahasa Indonesia, so guidance
// for user-correctable errors does too; operational failures keep a generic
// bilingual-neutral phrasing.
const (
	msgUnroutable = "Permintaan tidak dapat diproses. Sertakan perintah teks, gambar struk, atau data untuk dianalisis."
	msgTooLarge   = "Payload terlalu besar. Maksimum 4.5MB."
	msgAuth       = "Autentikasi ke penyedia layanan AI gagal. Periksa konfigurasi kredensial."
	msgProvider   = "Terjadi kesalahan saat memproses permintaan di penyedia AI. Silakan coba lagi."
	msgInternal   = "Terjadi kesalahan internal. Silakan coba lagi."
)

// wrapAdapterError maps anything raised below the router boundary into the
// taxonomy. Nothing propagates to the HTTP layer unclassified.
func wrapAdapterError(err error) *Error {
	var routerErr *Error
	if errors.As(err, &routerErr) {
		return routerErr
	}

	var authErr *iam.AuthError
	if errors.As(err, &authErr) {
		return &Error{Category: CategoryAuth, Status: http.StatusUnauthorized, Message: msgAuth, Err: err}
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return &Error{Category: CategoryProvider, Status: http.StatusBadGateway, Message: msgProvider, Err: err}
	}

	var parseErr *normalize.ParseError
	if errors.As(err, &parseErr) {
		return &Error{Category: CategoryParse, Status: http.StatusBadGateway, Message: msgProvider, Err: err}
	}

	var structErr *normalize.StructureError
	if errors.As(err, &structErr) {
		return &Error{Category: CategoryStructure, Status: http.StatusBadGateway, Message: msgProvider, Err: err}
	}

	// A timed-out outbound call is a provider failure, not an internal one.
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryProvider, Status: http.StatusBadGateway, Message: msgProvider, Err: err}
	}

	return &Error{Category: CategoryInternal, Status: http.StatusInternalServerError, Message: msgInternal, Err: err}
}
