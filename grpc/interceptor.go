package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ka "github.com/letskraack/kraackauth"
)

// InterceptorConfig configures the auth interceptor.
type InterceptorConfig struct {
	// VerifyToken validates a session token and returns its claims.
	// Typically SessionIssuer.Verify, optionally composed with the
	// callback pipeline's claims enrichment.
	VerifyToken func(tokenString string) (*ka.SessionClaims, error)

	// MetadataKeyToken is the metadata key holding the token.  Defaults
	// to "authorization".
	MetadataKeyToken string

	// RequireAuth when true rejects unauthenticated requests.  When
	// false, requests proceed and ClaimsFromContext returns nil.
	RequireAuth bool

	// PublicMethods don't require auth even when RequireAuth is true.
	// Keys are full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for all methods
// except the given public ones.
func NewInterceptorConfig(verify func(string) (*ka.SessionClaims, error), publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		VerifyToken:   verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

func (c *InterceptorConfig) EnsureDefaults() {
	if c.MetadataKeyToken == "" {
		c.MetadataKeyToken = DefaultMetadataKeyToken
	}
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

func (c *InterceptorConfig) resolve(ctx context.Context) *ka.SessionClaims {
	if c.VerifyToken == nil {
		return nil
	}
	token := tokenFromMetadata(ctx, c.MetadataKeyToken)
	if token == "" {
		return nil
	}
	claims, err := c.VerifyToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the session
// token and attaches claims to the handler context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.EnsureDefaults()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		claims := config.resolve(ctx)
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && claims == nil {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		if claims != nil {
			ctx = withClaims(ctx, claims)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a stream interceptor with the same rules.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.EnsureDefaults()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		claims := config.resolve(ss.Context())
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && claims == nil {
			return status.Error(codes.Unauthenticated, "authentication required")
		}
		if claims != nil {
			ss = &claimsServerStream{ServerStream: ss, ctx: withClaims(ss.Context(), claims)}
		}
		return handler(srv, ss)
	}
}

type claimsServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *claimsServerStream) Context() context.Context {
	return s.ctx
}
