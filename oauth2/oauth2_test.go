package oauth2_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kaoauth "github.com/letskraack/kraackauth/oauth2"
	oauth2lib "golang.org/x/oauth2"
)

// mockOAuthServer stands in for a provider: a /token endpoint for the code
// exchange and a /userinfo endpoint for profile data.
type mockOAuthServer struct {
	server           *httptest.Server
	tokenEndpoint    string
	userInfoEndpoint string

	userInfoResponse map[string]any
	tokenError       bool
}

func newMockOAuthServer() *mockOAuthServer {
	mock := &mockOAuthServer{
		userInfoResponse: map[string]any{
			"id":    "12345",
			"email": "testuser@example.com",
			"name":  "Test User",
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if mock.tokenError {
			http.Error(w, "token exchange failed", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "mock_access_token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "mock_refresh_token",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.userInfoResponse)
	})
	mock.server = httptest.NewServer(mux)
	mock.tokenEndpoint = mock.server.URL + "/token"
	mock.userInfoEndpoint = mock.server.URL + "/userinfo"
	return mock
}

func (m *mockOAuthServer) Close() {
	m.server.Close()
}

func TestOauthRedirector(t *testing.T) {
	githubAuth := kaoauth.NewGithubOAuth2("client-id", "client-secret",
		"http://localhost:8080/callback", nil)

	req := httptest.NewRequest(http.MethodGet, "/?callbackURL=/settings", nil)
	rr := httptest.NewRecorder()
	githubAuth.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("Expected redirect, got %d", rr.Code)
	}
	location := rr.Header().Get("Location")
	if !strings.Contains(location, "client_id=client-id") {
		t.Errorf("Redirect should carry the client id: %s", location)
	}
	if !strings.Contains(location, "state=") {
		t.Errorf("Redirect should carry a state parameter: %s", location)
	}

	var stateCookie, callbackCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case "oauthstate":
			stateCookie = c
		case "oauthCallbackURL":
			callbackCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Error("Expected an oauthstate cookie")
	}
	if stateCookie != nil && !strings.Contains(location, stateCookie.Value) {
		t.Error("State in the redirect URL should match the cookie")
	}
	if callbackCookie == nil || callbackCookie.Value != "/settings" {
		t.Errorf("Expected oauthCallbackURL cookie with /settings, got %v", callbackCookie)
	}
}

func TestGithubOAuth2Callback(t *testing.T) {
	mock := newMockOAuthServer()
	defer mock.Close()

	var handledProvider string
	var handledUserInfo map[string]any
	var handledCalled bool

	githubAuth := kaoauth.NewGithubOAuth2("test-client-id", "test-client-secret",
		"http://localhost:8080/callback",
		func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			handledCalled = true
			handledProvider = provider
			handledUserInfo = userInfo
			w.WriteHeader(http.StatusOK)
		})
	githubAuth.UserInfoURL = mock.userInfoEndpoint
	githubAuth.SetHTTPClient(mock.server.Client())
	githubAuth.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.tokenEndpoint,
	})

	t.Run("rejects missing state cookie", func(t *testing.T) {
		handledCalled = false
		req := httptest.NewRequest(http.MethodGet, "/callback/?code=test_code&state=test_state", nil)
		rr := httptest.NewRecorder()
		githubAuth.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
		if handledCalled {
			t.Error("HandleUser should not be called without a state cookie")
		}
	})

	t.Run("rejects mismatched state", func(t *testing.T) {
		handledCalled = false
		req := httptest.NewRequest(http.MethodGet, "/callback/?code=test_code&state=wrong_state", nil)
		req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "correct_state"})
		rr := httptest.NewRecorder()
		githubAuth.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
		if handledCalled {
			t.Error("HandleUser should not be called with mismatched state")
		}
	})

	t.Run("successful callback flow", func(t *testing.T) {
		handledCalled = false
		mock.userInfoResponse = map[string]any{
			"id":    float64(67890),
			"login": "octocat",
			"email": "octo@example.com",
		}

		req := httptest.NewRequest(http.MethodGet, "/callback/?code=valid_code&state=valid_state", nil)
		req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "valid_state"})
		rr := httptest.NewRecorder()
		githubAuth.Handler().ServeHTTP(rr, req)

		if !handledCalled {
			t.Fatalf("HandleUser was not called; status %d: %s", rr.Code, rr.Body.String())
		}
		if handledProvider != "github" {
			t.Errorf("Expected provider github, got %q", handledProvider)
		}
		if handledUserInfo["login"] != "octocat" {
			t.Errorf("Expected userinfo from mock, got %v", handledUserInfo)
		}
	})

	t.Run("failed exchange redirects to failure url", func(t *testing.T) {
		handledCalled = false
		mock.tokenError = true
		defer func() { mock.tokenError = false }()

		req := httptest.NewRequest(http.MethodGet, "/callback/?code=bad_code&state=valid_state", nil)
		req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "valid_state"})
		rr := httptest.NewRecorder()
		githubAuth.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusTemporaryRedirect {
			t.Errorf("Expected redirect on exchange failure, got %d", rr.Code)
		}
		if handledCalled {
			t.Error("HandleUser should not be called when the exchange fails")
		}
	})
}

func TestLinkedinOAuth2Callback(t *testing.T) {
	mock := newMockOAuthServer()
	defer mock.Close()

	var handledProvider string
	var handledCalled bool

	linkedinAuth := kaoauth.NewLinkedinOAuth2("test-client-id", "test-client-secret",
		"http://localhost:8080/callback",
		func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			handledCalled = true
			handledProvider = provider
			w.WriteHeader(http.StatusOK)
		})
	linkedinAuth.UserInfoURL = mock.userInfoEndpoint
	linkedinAuth.SetHTTPClient(mock.server.Client())
	linkedinAuth.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.tokenEndpoint,
	})

	mock.userInfoResponse = map[string]any{
		"sub":   "li-abc",
		"email": "pro@example.com",
		"name":  "Pro Fessional",
	}

	req := httptest.NewRequest(http.MethodGet, "/callback/?code=valid_code&state=valid_state", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "valid_state"})
	rr := httptest.NewRecorder()
	linkedinAuth.Handler().ServeHTTP(rr, req)

	if !handledCalled {
		t.Fatalf("HandleUser was not called; status %d: %s", rr.Code, rr.Body.String())
	}
	if handledProvider != "linkedin" {
		t.Errorf("Expected provider linkedin, got %q", handledProvider)
	}
}
