package redis

import "context"

type sessionContextKey struct{}

// WithSessionID returns a context carrying the client session identifier
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionID)
}

// SessionIDFromContext returns the client session identifier, if any
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionContextKey{}).(string)
	return id, ok && id != ""
}
