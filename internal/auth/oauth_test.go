package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// fakeGitHub serves the token endpoint and the two API calls Exchange makes.
func fakeGitHub(t *testing.T, emails []githubEmail) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(GitHubUser{ID: 99, Login: "octo", Email: "public@example.com"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeProvider(srv *httptest.Server) *GitHubProvider {
	return NewGitHubProviderAt("id", "secret", "http://localhost/cb", srv.URL, srv.URL)
}

func TestExchange_UsesPrimaryVerifiedEmail(t *testing.T) {
	srv := fakeGitHub(t, []githubEmail{
		{Email: "old@example.com", Primary: false, Verified: true},
		{Email: "main@example.com", Primary: true, Verified: true},
	})
	p := newFakeProvider(srv)

	u, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if u.ID != 99 || u.Email != "main@example.com" {
		t.Errorf("Exchange() = %+v, want id 99 main@example.com", u)
	}
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		emails []githubEmail
	}{
		{"bad code", "bad-code", nil},
		{"no verified primary email", "good-code", []githubEmail{{Email: "x@example.com", Primary: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(fakeGitHub(t, tt.emails))
			if _, err := p.Exchange(context.Background(), tt.code); err == nil {
				t.Fatal("Exchange() should fail")
			}
		})
	}
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client-1", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-xyz"))
	if err != nil {
		t.Fatalf("AuthURL() not a URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" || q.Get("client_id") != "client-1" {
		t.Errorf("AuthURL() query = %v", q)
	}
}
