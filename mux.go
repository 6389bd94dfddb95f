package kraackauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// App wires the stores, the token issuer, the email sender, and the session
// subsystem into an http.Handler serving the auth API.
type App struct {
	// Must be passed in.
	Users         UserStore
	Accounts      AccountStore
	Tokens        TokenStore
	Confirmations ConfirmationStore

	Email EmailSender

	Issuer        *Issuer
	Pipeline      *CallbackPipeline
	SessionTokens *SessionIssuer
	Session       *scs.SessionManager
	Middleware    Middleware
	Routes        RouteConfig

	// Optional name used as a prefix for cookie and env var names.
	AppName string

	// BaseURL is prepended to the links placed in verification and reset
	// emails.
	BaseURL string

	// Name of the cookie and session variable holding the auth token.
	AuthTokenSessionVar string

	// All the domains the auth cookies are set on at login and cleared on
	// logout.
	CookieDomains []string

	JwtIssuer    string
	JWTSecretKey string

	// How long a session is valid for.  Defaults to 1 day.
	SessionTimeoutInSeconds int

	router *mux.Router
}

func New(appName string, users UserStore, accounts AccountStore, tokens TokenStore, confirmations ConfirmationStore) *App {
	out := &App{
		AppName:       appName,
		Users:         users,
		Accounts:      accounts,
		Tokens:        tokens,
		Confirmations: confirmations,
	}
	return out.EnsureDefaults()
}

func (a *App) EnsureDefaults() *App {
	if a.AppName == "" {
		a.AppName = "KraackAuth"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("KRAACKAUTH_JWT_SECRET_KEY"))
		if a.JWTSecretKey == "" {
			a.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if a.BaseURL == "" {
		a.BaseURL = strings.TrimSpace(os.Getenv("KRAACKAUTH_BASE_URL"))
		if a.BaseURL == "" {
			a.BaseURL = "http://localhost:8080"
		}
	}
	if a.Email == nil {
		a.Email = &ConsoleEmailSender{}
	}
	if a.Issuer == nil {
		a.Issuer = NewIssuer(a.Tokens, a.Confirmations)
	}
	if a.Pipeline == nil {
		a.Pipeline = NewCallbackPipeline(a.Users, a.Accounts, a.Confirmations)
	}
	if a.SessionTokens == nil {
		a.SessionTokens = &SessionIssuer{
			SecretKey: a.JWTSecretKey,
			Issuer:    a.JwtIssuer,
			TTL:       time.Duration(a.SessionTimeoutInSeconds) * time.Second,
		}
	}
	if a.Session == nil {
		a.Session = scs.New()
	}
	a.Routes.EnsureDefaults()
	a.Middleware.Routes = a.Routes
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.SessionTokens.Verify
	}
	if a.Middleware.Enrich == nil {
		a.Middleware.Enrich = a.Pipeline.EnrichClaims
	}
	return a
}

// Handler returns the auth API handler with session loading applied.
func (a *App) Handler() http.Handler {
	return a.Session.LoadAndSave(a.setupRoutes().router)
}

func (a *App) setupRoutes() *App {
	if a.router != nil {
		return a
	}
	a.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/signup", a.HandleSignup).Methods("POST")
	r.HandleFunc("/api/auth/login", a.HandleLogin).Methods("POST")
	r.HandleFunc("/api/auth/verify-email", a.HandleVerifyEmail).Methods("POST")
	r.HandleFunc("/api/auth/reset-password", a.HandleResetPassword).Methods("POST")
	r.HandleFunc("/api/auth/new-password", a.HandleNewPassword).Methods("POST")
	r.HandleFunc("/api/auth/logout", a.HandleLogout).Methods("POST")
	r.Handle("/api/settings",
		a.Middleware.RequireClaims(http.HandlerFunc(a.HandleSettings))).Methods("POST")
	a.router = r
	return a
}

// AddProvider mounts an OAuth provider handler under /api/auth/<name>/.
// The handler sees paths relative to that prefix, so /api/auth/google/
// becomes / and /api/auth/google/callback/ becomes /callback/.
func (a *App) AddProvider(name string, handler http.Handler) *App {
	a.setupRoutes()
	prefix := a.Routes.APIAuthPrefix + "/" + name
	a.router.PathPrefix(prefix + "/").Handler(http.StripPrefix(prefix, handler))
	return a
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, err *AuthError) {
	body := map[string]any{"message": err.Message, "code": err.Code}
	if err.Field != "" {
		body["field"] = err.Field
	}
	a.writeJSON(w, err.Status, body)
}

func (a *App) serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "err", err)
	a.writeError(w, NewAuthError(ErrCodeServerError, "Something went wrong", ""))
}

// HandleOAuthUser is the HandleUserFunc the provider handlers call after a
// successful exchange.  It resolves or creates the local user, links the
// external account, issues the session, and redirects back to where the
// flow started.
func (a *App) HandleOAuthUser(authtype string, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	user, err := a.ensureOAuthUser(provider, token, userInfo)
	if err != nil {
		slog.Error("oauth sign-in failed", "provider", provider, "err", err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ok, err := a.Pipeline.AuthorizeSignIn(provider, user.ID)
	if err != nil || !ok {
		slog.Error("oauth sign-in blocked", "provider", provider, "err", err)
		http.Error(w, "Sign-in blocked", http.StatusForbidden)
		return
	}

	if err := a.setLoggedInUser(w, r, user); err != nil {
		slog.Error("session issuance failed", "err", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	// Auth done, go back to where the flow started.
	callbackURL := a.Routes.DefaultLoginRedirect
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		callbackURL = cookie.Value
	}
	if u, _ := url.Parse(callbackURL); u != nil && u.Scheme == "" && !strings.HasPrefix(callbackURL, "/") {
		callbackURL = "/" + callbackURL
	}
	http.SetCookie(w, &http.Cookie{
		Name: "oauthCallbackURL", Value: "", Path: "/",
		MaxAge: -1, Expires: time.Now(),
	})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// ensureOAuthUser maps a provider identity onto a local user: an already
// linked account wins, then an email match, and finally a fresh user is
// created.  Linking marks the email verified since the provider vouches
// for it.
func (a *App) ensureOAuthUser(provider string, token *oauth2.Token, userInfo map[string]any) (*User, error) {
	providerAccountId := externalAccountId(userInfo)
	if providerAccountId == "" {
		return nil, fmt.Errorf("provider %s did not return an account id", provider)
	}

	account, err := a.Accounts.GetAccount(provider, providerAccountId)
	if err == nil {
		return a.Users.GetUserById(account.UserID)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	email := NormalizeEmail(stringClaim(userInfo, "email"))
	if email == "" {
		return nil, fmt.Errorf("provider %s did not return an email", provider)
	}

	user, err := a.Users.GetUserByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		now := time.Now()
		user = &User{
			ID:        uuid.NewString(),
			Name:      oauthDisplayName(userInfo, email),
			Email:     email,
			Image:     oauthPicture(userInfo),
			Role:      RoleUser,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.Users.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	newAccount := &Account{
		Provider:          provider,
		ProviderAccountID: providerAccountId,
		UserID:            user.ID,
		Type:              "oauth",
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		CreatedAt:         time.Now(),
	}
	if !token.Expiry.IsZero() {
		newAccount.ExpiresAt = token.Expiry.Unix()
	}
	if err := a.Accounts.LinkAccount(newAccount); err != nil {
		return nil, fmt.Errorf("failed to link account: %w", err)
	}
	if err := a.Pipeline.OnAccountLinked(user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// externalAccountId pulls the provider's stable user id out of the userinfo
// payload.  GitHub and Google use "id", OpenID providers use "sub".
func externalAccountId(userInfo map[string]any) string {
	switch v := userInfo["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	if sub, ok := userInfo["sub"].(string); ok {
		return sub
	}
	return ""
}

func stringClaim(userInfo map[string]any, key string) string {
	v, _ := userInfo[key].(string)
	return v
}

func oauthDisplayName(userInfo map[string]any, email string) string {
	if name := stringClaim(userInfo, "name"); name != "" {
		return name
	}
	if login := stringClaim(userInfo, "login"); login != "" {
		return login
	}
	return email
}

func oauthPicture(userInfo map[string]any) string {
	if picture := stringClaim(userInfo, "picture"); picture != "" {
		return picture
	}
	return stringClaim(userInfo, "avatar_url")
}

// setLoggedInUser mints a session token for the user and sets it on the
// server-side session and on auth cookies across the configured domains.
func (a *App) setLoggedInUser(w http.ResponseWriter, r *http.Request, user *User) error {
	a.EnsureDefaults()
	claims, err := a.Pipeline.EnrichClaims(&SessionClaims{UserID: user.ID})
	if err != nil {
		return err
	}
	tokenString, err := a.SessionTokens.Mint(claims)
	if err != nil {
		return err
	}

	a.Session.Put(r.Context(), "loggedInUserId", user.ID)
	a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)

	domains := a.CookieDomains
	if !slices.Contains(domains, "") {
		domains = append(domains, "")
	}
	expires := time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds))
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name: "oauthstate", Value: "", Domain: cookieDomain, Path: "/",
			MaxAge: -1, Expires: time.Now(),
		})
		http.SetCookie(w, &http.Cookie{
			Name: "loggedInUserId", Value: user.ID, Domain: cookieDomain, Path: "/",
			Expires: expires, MaxAge: a.SessionTimeoutInSeconds,
		})
		http.SetCookie(w, &http.Cookie{
			Name: a.AuthTokenSessionVar, Value: tokenString, Domain: cookieDomain, Path: "/",
			Expires: expires, MaxAge: a.SessionTimeoutInSeconds,
			HttpOnly: true,
		})
	}
	return nil
}

func (a *App) clearLoggedInUser(w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	if err := a.Session.Clear(r.Context()); err != nil {
		slog.Warn("error clearing session", "err", err)
	}
	domains := a.CookieDomains
	if !slices.Contains(domains, "") {
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name: "loggedInUserId", Domain: cookieDomain, Path: "/",
			MaxAge: -1, Expires: time.Now(),
		})
		http.SetCookie(w, &http.Cookie{
			Name: a.AuthTokenSessionVar, Domain: cookieDomain, Path: "/",
			MaxAge: -1, Expires: time.Now(),
		})
	}
}
