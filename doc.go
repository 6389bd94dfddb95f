// Package kraackauth provides credentials and OAuth authentication for Go
// web applications: signup with email verification, password reset,
// email-delivered two-factor codes, OAuth sign-in with account linking, and
// JWT-backed sessions with route access control.
//
// # Architecture
//
// User: a unified account record.  A user created through signup carries a
// bcrypt password hash; a user created through an OAuth callback does not.
// Both kinds can coexist on one account once an external identity is linked.
//
// Account: one linked OAuth identity (GitHub, Google, LinkedIn), keyed by
// provider and the provider's stable account id.
//
// AuthToken: a single-use, single-purpose token (email verification,
// password reset, two-factor code).  At most one live token exists per
// (kind, email); issuing a new one replaces the old.
//
// TwoFactorConfirmation: the short-lived record a cleared two-factor
// challenge leaves behind.  The sign-in authorization hook consumes it, so
// one cleared challenge buys exactly one sign-in.
//
// # Basic Usage
//
// Set up stores and the app:
//
//	import (
//	    "github.com/letskraack/kraackauth"
//	    "github.com/letskraack/kraackauth/stores"
//	)
//
//	storagePath := "/path/to/storage"
//	app := kraackauth.New("MyApp",
//	    stores.NewFSUserStore(storagePath),
//	    stores.NewFSAccountStore(storagePath),
//	    stores.NewFSTokenStore(storagePath),
//	    stores.NewFSConfirmationStore(storagePath))
//	app.Email = myEmailSender
//
// Mount OAuth providers:
//
//	import kaoauth "github.com/letskraack/kraackauth/oauth2"
//
//	app.AddProvider("google", kaoauth.NewGoogleOAuth2("", "", "", app.HandleOAuthUser))
//	app.AddProvider("github", kaoauth.NewGithubOAuth2("", "", "", app.HandleOAuthUser))
//	app.AddProvider("linkedin", kaoauth.NewLinkedinOAuth2("", "", "", app.HandleOAuthUser))
//
// Serve, with the route interceptor in front of the rest of the site:
//
//	http.Handle("/api/", app.Handler())
//	http.Handle("/", app.Middleware.Intercept(siteHandler))
package kraackauth
