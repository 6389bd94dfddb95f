package kraackauth

import (
	"strings"
	"time"
)

// Role is the access level carried in session claims.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// ValidRole reports whether a role string is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is a unified account record.  PasswordHash is empty for accounts that
// only ever signed in through an OAuth provider.  PendingEmail holds an email
// change that has been requested but not yet re-verified; the address in
// Email stays authoritative until the verification token for PendingEmail is
// consumed.
//
// User is never marshalled onto the wire; handlers return PublicUser.
type User struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PendingEmail       string     `json:"pending_email,omitempty"`
	PasswordHash       string     `json:"password_hash,omitempty"`
	EmailVerifiedAt    *time.Time `json:"email_verified_at"`
	Image              string     `json:"image,omitempty"`
	Role               Role       `json:"role"`
	IsTwoFactorEnabled bool       `json:"is_two_factor_enabled"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PublicUser is the subset of User safe to return from the signup endpoint.
type PublicUser struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"emailVerified"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

// UserStore manages user accounts keyed by id and (case-insensitive) email.
type UserStore interface {
	// CreateUser persists a new user.  Returns ErrUserExists when a user
	// with the same email is already present.
	CreateUser(user *User) error

	GetUserById(userId string) (*User, error)

	// GetUserByEmail looks a user up by normalized email.
	GetUserByEmail(email string) (*User, error)

	// GetUserByPendingEmail finds the user that has requested an email
	// change to the given address, if any.
	GetUserByPendingEmail(email string) (*User, error)

	// SaveUser updates an existing user.
	SaveUser(user *User) error
}

// Account links a User to one external OAuth identity.  The token material is
// opaque to the auth flows; it is stored so a provider integration can refresh
// it later.
type Account struct {
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	UserID            string    `json:"user_id"`
	Type              string    `json:"type"` // "oauth" | "oidc"
	AccessToken       string    `json:"access_token,omitempty"`
	RefreshToken      string    `json:"refresh_token,omitempty"`
	ExpiresAt         int64     `json:"expires_at,omitempty"`
	Scope             string    `json:"scope,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// AccountStore manages external identities keyed by (provider, providerAccountId).
type AccountStore interface {
	// LinkAccount creates or updates the account row for its key.
	LinkAccount(account *Account) error

	GetAccount(provider, providerAccountId string) (*Account, error)

	GetUserAccounts(userId string) ([]*Account, error)

	// HasExternalIdentity reports whether at least one OAuth account is
	// linked to the user.  Claims enrichment uses this rather than
	// inferring it from a side lookup.
	HasExternalIdentity(userId string) (bool, error)

	// DeleteUserAccounts removes all linked accounts for a user.
	DeleteUserAccounts(userId string) error
}

// NormalizeEmail lower-cases and trims an email so lookups are
// case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName composes a display name from first/last, falling back to the
// email when both are blank after trimming.
func DisplayName(firstName, lastName, email string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{strings.TrimSpace(firstName), strings.TrimSpace(lastName)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}
