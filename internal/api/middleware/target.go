package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/numeri/numeri/proxy/pkg/models"
)

type contextKey string

// targetAgentKey is the context key for the explicit target-agent hint.
const targetAgentKey contextKey = "target_agent"

// TargetAgent extracts the X-Target-Agent header into the request context so
// handlers and classification see one normalized value.
func TargetAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimSpace(r.Header.Get(models.TargetAgentHeader))
		ctx := context.WithValue(r.Context(), targetAgentKey, target)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTargetAgent retrieves the target-agent hint from the request context.
func GetTargetAgent(ctx context.Context) string {
	if v, ok := ctx.Value(targetAgentKey).(string); ok {
		return v
	}
	return ""
}
