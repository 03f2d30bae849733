package contexthelpers

import (
	"context"
)

// ProfileID is the anonymous player profile of the request, or "" when there is none.
func ProfileID(ctx context.Context) string {
	profileID, ok := ctx.Value(profileIDContextKey).(string)
	if !ok {
		return ""
	}

	return profileID
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}
