package kraackauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the session view of a user.  Everything except UserID is
// re-read from the user store on each request (see CallbackPipeline.
// EnrichClaims) so a settings change shows up without a re-login.
type SessionClaims struct {
	UserID             string `json:"sub"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Image              string `json:"picture,omitempty"`
	Role               Role   `json:"role"`
	IsOAuth            bool   `json:"is_oauth"`
	IsTwoFactorEnabled bool   `json:"is_two_factor_enabled"`
}

// SessionIssuer signs and verifies the JWT session tokens carried in the
// auth cookie.
type SessionIssuer struct {
	SecretKey string
	Issuer    string

	// TTL of a minted token.  Defaults to 24h.
	TTL time.Duration
}

func (s *SessionIssuer) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 24 * time.Hour
}

// Mint signs a session token for the given claims.
func (s *SessionIssuer) Mint(claims *SessionClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                   claims.UserID,
		"iss":                   s.Issuer,
		"iat":                   now.Unix(),
		"exp":                   now.Add(s.ttl()).Unix(),
		"name":                  claims.Name,
		"email":                 claims.Email,
		"picture":               claims.Image,
		"role":                  string(claims.Role),
		"is_oauth":              claims.IsOAuth,
		"is_two_factor_enabled": claims.IsTwoFactorEnabled,
	})
	signed, err := token.SignedString([]byte(s.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns its claims.  Claims other than
// the subject are only a snapshot; callers wanting live values run the
// result through the callback pipeline.
func (s *SessionIssuer) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("subject not found")
	}

	out := &SessionClaims{UserID: sub}
	if v, ok := claims["name"].(string); ok {
		out.Name = v
	}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := claims["picture"].(string); ok {
		out.Image = v
	}
	if v, ok := claims["role"].(string); ok {
		out.Role = Role(v)
	}
	if v, ok := claims["is_oauth"].(bool); ok {
		out.IsOAuth = v
	}
	if v, ok := claims["is_two_factor_enabled"].(bool); ok {
		out.IsTwoFactorEnabled = v
	}
	return out, nil
}
