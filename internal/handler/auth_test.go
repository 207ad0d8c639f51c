package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inventory-service/internal/auth"
	"github.com/sakif/inventory-service/internal/handler"
	"github.com/sakif/inventory-service/internal/repository/sqlite"
	"github.com/sakif/inventory-service/internal/service"
	"github.com/sakif/inventory-service/internal/storage"
)

// fakeGitHub answers the token exchange and the two profile calls. The code
// decides who signs in: "code-<local>" yields <local>@example.com, and any
// other code is refused.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		local, ok := strings.CutPrefix(r.Form.Get("code"), "code-")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-" + local, "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "login": "octo"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		local := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer gh-")
		json.NewEncoder(w).Encode([]map[string]any{
			{"email": local + "@example.com", "primary": true, "verified": true},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type githubEnv struct {
	handler *handler.AuthHandler
	tokens  *auth.TokenService
	gh      *httptest.Server
	userID  int64
}

// newGitHubEnv wires the GitHub handler to a real account store holding
// alice@example.com.
func newGitHubEnv(t *testing.T) *githubEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	photos, err := storage.NewPhotoStore(t.TempDir(), 1<<20, logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("github-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	accounts := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), photos, logger)
	alice, err := accounts.Register(context.Background(), service.RegisterInput{
		FirstName: "Alice",
		LastName:  "Tester",
		Phone:     "555-0199",
		Email:     "alice@example.com",
		Password:  "secret123",
	})
	require.NoError(t, err)

	gh := fakeGitHub(t)
	provider := auth.NewGitHubProviderAt("client-1", "secret", "http://localhost/auth/github/callback", gh.URL, gh.URL)

	return &githubEnv{
		handler: handler.NewAuthHandler(provider, accounts, logger),
		tokens:  tokens,
		gh:      gh,
		userID:  alice.ID,
	}
}

// callback calls the callback with query and, when state is non-empty, a
// matching state cookie.
func (e *githubEnv) callback(query url.Values, cookieState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	}
	rec := httptest.NewRecorder()
	e.handler.HandleGitHubCallback(rec, req)
	return rec
}

func TestGitHubLogin_RedirectsWithState(t *testing.T) {
	env := newGitHubEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), env.gh.URL+"/login/oauth/authorize"), loc.String())
	assert.Equal(t, "client-1", loc.Query().Get("client_id"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestGitHubCallback_Rejects(t *testing.T) {
	env := newGitHubEnv(t)

	tests := []struct {
		name        string
		query       url.Values
		cookie      string
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:        "no state cookie",
			query:       url.Values{"state": {"s1"}, "code": {"code-alice"}},
			wantStatus:  http.StatusBadRequest,
			wantError:   "validation_error",
			wantMessage: "invalid OAuth state",
		},
		{
			name:        "state mismatch",
			query:       url.Values{"state": {"s2"}, "code": {"code-alice"}},
			cookie:      "s1",
			wantStatus:  http.StatusBadRequest,
			wantError:   "validation_error",
			wantMessage: "invalid OAuth state",
		},
		{
			name:        "authorization denied",
			query:       url.Values{"state": {"s1"}, "error": {"access_denied"}},
			cookie:      "s1",
			wantStatus:  http.StatusUnauthorized,
			wantError:   "unauthorized",
			wantMessage: "GitHub authorization was denied",
		},
		{
			name:        "missing code",
			query:       url.Values{"state": {"s1"}},
			cookie:      "s1",
			wantStatus:  http.StatusBadRequest,
			wantError:   "validation_error",
			wantMessage: "missing OAuth code",
		},
		{
			name:        "exchange refused",
			query:       url.Values{"state": {"s1"}, "code": {"stolen"}},
			cookie:      "s1",
			wantStatus:  http.StatusUnauthorized,
			wantError:   "unauthorized",
			wantMessage: "GitHub authentication failed",
		},
		{
			name:        "no matching account",
			query:       url.Values{"state": {"s1"}, "code": {"code-stranger"}},
			cookie:      "s1",
			wantStatus:  http.StatusNotFound,
			wantError:   "not_found",
			wantMessage: "no account is registered for this GitHub email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.callback(tt.query, tt.cookie)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body errorBody
			decode(t, rec, &body)
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}

func TestGitHubCallback_IssuesToken(t *testing.T) {
	env := newGitHubEnv(t)

	rec := env.callback(url.Values{"state": {"s1"}, "code": {"code-alice"}}, "s1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The state cookie is spent.
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "state cookie not cleared")

	var result struct {
		Token string `json:"access_token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &result)
	assert.Equal(t, "alice@example.com", result.User.Email)

	userID, err := env.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, env.userID, userID)
}
