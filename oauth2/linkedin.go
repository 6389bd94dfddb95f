package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/linkedin"
)

type LinkedinOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL defaults to LinkedIn's OpenID userinfo endpoint;
	// overridable for testing.
	UserInfoURL string
}

func NewLinkedinOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *LinkedinOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_LINKEDIN_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_LINKEDIN_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_LINKEDIN_CALLBACK_URL"))
	}

	out := LinkedinOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleUser),
		UserInfoURL: "https://api.linkedin.com/v2/userinfo",
	}
	out.oauthConfig.Endpoint = linkedin.Endpoint
	out.oauthConfig.Scopes = []string{"openid", "profile", "email"}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return &out
}

func (l *LinkedinOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !l.checkState(w, r) {
		return
	}
	token, err := l.oauthConfig.Exchange(l.exchangeContext(), r.FormValue("code"))
	if err != nil {
		slog.Info("linkedin code exchange failed", "err", err)
		http.Redirect(w, r, l.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}
	userInfo, err := l.fetchUserInfo(l.UserInfoURL, token)
	if err != nil {
		slog.Info("linkedin userinfo fetch failed", "err", err)
		http.Redirect(w, r, l.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}
	l.HandleUser("oauth", "linkedin", token, userInfo, w, r)
}
