// Package grpc lets backend gRPC services accept the same session tokens the
// HTTP layer mints.  The interceptor verifies the token carried in request
// metadata and attaches the resulting session claims to the context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	ka "github.com/letskraack/kraackauth"
)

// DefaultMetadataKeyToken is the metadata key the interceptor reads the
// session token from.
const DefaultMetadataKeyToken = "authorization"

type claimsContextKey struct{}

// ClaimsFromContext returns the session claims the interceptor attached, or
// nil for an unauthenticated request.
func ClaimsFromContext(ctx context.Context) *ka.SessionClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*ka.SessionClaims)
	return claims
}

// UserIDFromContext is a shortcut for the common case of only needing the
// user id.
func UserIDFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func withClaims(ctx context.Context, claims *ka.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// WithToken returns an outgoing context carrying the session token, for
// clients calling an intercepted service.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyToken, "Bearer "+token)
}

// tokenFromMetadata pulls the bearer token out of incoming metadata.
func tokenFromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(key) {
		token := strings.TrimPrefix(value, "Bearer ")
		if token != "" {
			return token
		}
	}
	return ""
}
