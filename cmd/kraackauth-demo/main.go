// Command kraackauth-demo runs a small host application showing the full
// authentication surface: credentials signup and login, email verification,
// password reset, two-factor codes, OAuth sign-in and the route interceptor.
//
// Emails are printed to the console.  OAuth providers activate when their
// OAUTH2_<PROVIDER>_CLIENT_ID / OAUTH2_<PROVIDER>_CLIENT_SECRET environment
// variables are set.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	ka "github.com/letskraack/kraackauth"
	kaoauth "github.com/letskraack/kraackauth/oauth2"
	"github.com/letskraack/kraackauth/stores"
)

func main() {
	addr := flag.String("addr", ":8080", "Address to listen on")
	storage := flag.String("storage", "./kraackauth-data", "Directory for file-based storage")
	flag.Parse()

	app := ka.New("KraackAuthDemo",
		stores.NewFSUserStore(*storage),
		stores.NewFSAccountStore(*storage),
		stores.NewFSTokenStore(*storage),
		stores.NewFSConfirmationStore(*storage))

	for _, provider := range []string{"github", "google", "linkedin"} {
		if !providerConfigured(provider) {
			slog.Info("OAuth provider not configured, skipping", "provider", provider)
			continue
		}
		switch provider {
		case "github":
			app.AddProvider(provider, kaoauth.NewGithubOAuth2("", "", "", app.HandleOAuthUser))
		case "google":
			app.AddProvider(provider, kaoauth.NewGoogleOAuth2("", "", "", app.HandleOAuthUser))
		case "linkedin":
			app.AddProvider(provider, kaoauth.NewLinkedinOAuth2("", "", "", app.HandleOAuthUser))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", app.Handler())
	mux.Handle("/", app.Middleware.Intercept(http.HandlerFunc(sitePage)))

	slog.Info("Listening", "addr", *addr, "storage", *storage)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func providerConfigured(provider string) bool {
	prefix := "OAUTH2_" + map[string]string{
		"github": "GITHUB", "google": "GOOGLE", "linkedin": "LINKEDIN",
	}[provider]
	return os.Getenv(prefix+"_CLIENT_ID") != "" && os.Getenv(prefix+"_CLIENT_SECRET") != ""
}

// sitePage is a stand-in for the host application's pages.  The interceptor
// in front of it has already bounced anonymous visitors off protected paths.
func sitePage(w http.ResponseWriter, r *http.Request) {
	claims := ka.ClaimsFromContext(r.Context())
	switch r.URL.Path {
	case "/":
		fmt.Fprintln(w, "Welcome.  Try /dashboard, /login or /signup.")
	case "/login", "/signup":
		fmt.Fprintf(w, "POST to /api/auth%s to continue.\n", r.URL.Path)
	case "/dashboard":
		fmt.Fprintf(w, "Dashboard for %s (%s)\n", claims.Name, claims.Email)
	default:
		if claims != nil {
			fmt.Fprintf(w, "Hello %s, nothing at %s.\n", claims.Name, r.URL.Path)
		} else {
			http.NotFound(w, r)
		}
	}
}
