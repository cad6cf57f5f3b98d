package authcore

import "context"

// UnknownOrigin is the origin used when no client IP is attached to the context.
const UnknownOrigin = "unknown"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type identityContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Login scopes lockout to
// (email, ip) and activity log entries record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for activity logs.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithIdentity attaches an authenticated identity, usually the result of
// Engine.Authenticate, to ctx. Account flows read it from there.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return UnknownOrigin
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	if ip == "" {
		return UnknownOrigin
	}
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
