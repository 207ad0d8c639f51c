package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/auth"
	"github.com/sakif/inventory-service/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler runs the "Sign in with GitHub" flow for accounts that already
// exist. The GitHub primary verified email must match a registered email.
//
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, look up the account, issue a JWT
type AuthHandler struct {
	github   *auth.GitHubProvider
	accounts *service.AuthService
	logger   *slog.Logger
}

func NewAuthHandler(github *auth.GitHubProvider, accounts *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:   github,
		accounts: accounts,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// The response is the same as a password login: {"access_token", "user"}.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/auth/github",
		MaxAge: -1,
	})

	if denied := r.URL.Query().Get("error"); denied != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", denied))
		writeError(w, h.logger, apperror.Unauthorized("GitHub authorization was denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	result, err := h.accounts.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
