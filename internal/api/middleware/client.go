package middleware

import (
	"context"
	"net/http"
	"regexp"
)

// ClientIDHeader identifies the calling dispatch console or integration.
const ClientIDHeader = "X-Client-Id"

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type clientIDKey struct{}

// ClientID stores the X-Client-Id header in the request context.
// Malformed values are ignored rather than rejected.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ClientIDHeader)
		if id != "" && clientIDPattern.MatchString(id) {
			r = r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientID returns the client ID from the context, or an empty string.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}
	return ""
}
