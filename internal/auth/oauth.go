package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHubUser is the part of the GitHub profile used to find a local account.
// Email is the primary verified address.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. It is an alternative way to obtain an access token for an account
// that already exists; it never creates accounts.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to GitHub with ClientID, scopes and a random state.
//  2. GitHub redirects back to the callback URL with a short-lived code.
//  3. The server exchanges the code for an access token (server-to-server).
//  4. The server calls the GitHub API for the profile and email addresses.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
// callbackURL must match the one registered with the OAuth app exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint, githubAPI)
}

// NewGitHubProviderAt targets a GitHub-compatible host instead of github.com,
// such as GitHub Enterprise. The OAuth endpoints live under
// baseURL/login/oauth and the REST API under apiURL.
func NewGitHubProviderAt(clientID, clientSecret, callbackURL, baseURL, apiURL string) *GitHubProvider {
	baseURL = strings.TrimRight(baseURL, "/")
	return newGitHubProvider(clientID, clientSecret, callbackURL, oauth2.Endpoint{
		AuthURL:  baseURL + "/login/oauth/authorize",
		TokenURL: baseURL + "/login/oauth/access_token",
	}, apiURL)
}

func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, apiBase string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiBase: strings.TrimRight(apiBase, "/"),
	}
}

// AuthURL returns the URL to redirect the user to. state must be random and
// checked again on callback (CSRF protection).
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the GitHub profile. When the
// public profile hides the email, the primary verified address is read from
// /user/emails.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	var ghUser GitHubUser
	if err := getJSON(client, p.apiBase+"/user", &ghUser); err != nil {
		return nil, err
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	var emails []githubEmail
	if err := getJSON(client, p.apiBase+"/user/emails", &emails); err != nil {
		return nil, err
	}
	ghUser.Email = ""
	for _, e := range emails {
		if e.Primary && e.Verified {
			ghUser.Email = e.Email
			break
		}
	}
	if ghUser.Email == "" {
		return nil, fmt.Errorf("auth: GitHub account %s has no verified primary email", ghUser.Login)
	}

	return &ghUser, nil
}

func getJSON(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("auth: decoding %s: %w", url, err)
	}
	return nil
}
