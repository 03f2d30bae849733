package contexthelpers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/myrjola/misttheater/internal/logging"
)

// SetProfileID stores the player profile in the request context and tags the request's log lines with it.
func SetProfileID(r *http.Request, profileID string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, profileIDContextKey, profileID)
	ctx = logging.WithAttrs(ctx, slog.String("profile_id", profileID))
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, csrfTokenContextKey, csrfToken)
	return r.WithContext(ctx)
}
