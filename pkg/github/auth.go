package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v66/github"

	"weeklabel/pkg/config"
)

// TokenInfo describes the authenticated token
type TokenInfo struct {
	User string `json:"user"`
	// Scopes is empty for fine-grained tokens, which report no OAuth scopes.
	Scopes []string `json:"scopes"`
}

// AuthManager handles GitHub authentication
type AuthManager struct {
	client *Client
	token  string
}

// NewAuthManager creates a new authentication manager
func NewAuthManager() *AuthManager {
	return &AuthManager{}
}

// GetToken retrieves the GitHub token from the environment or the config.
// GITHUB_TOKEN wins over the configured github_token.
func (am *AuthManager) GetToken(cfg *config.Config) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}

	if cfg != nil && cfg.GitHubToken != "" {
		return strings.TrimSpace(cfg.GitHubToken), nil
	}

	return "", fmt.Errorf("no GitHub token found: set GITHUB_TOKEN environment variable or github_token in %s", config.DefaultConfigPath)
}

// Authenticate sets up the GitHub client with the provided token
func (am *AuthManager) Authenticate(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token cannot be empty")
	}

	am.client = NewClient(token, opts...)
	am.token = token
	return am.client, nil
}

// ValidateToken validates the GitHub token and checks permissions. The
// returned TokenInfo is populated even when a scope check fails.
func (am *AuthManager) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	if am.client == nil {
		return nil, fmt.Errorf("not authenticated: call Authenticate() first")
	}

	info, err := am.client.tokenInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to validate GitHub token: %w", err)
	}

	if err := validatePermissions(info.Scopes); err != nil {
		return info, err
	}
	return info, nil
}

func (c *Client) tokenInfo(ctx context.Context) (*TokenInfo, error) {
	var user *github.User
	var scopeHeader string

	err := c.call(ctx, "authenticated user", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = c.client.Users.Get(ctx, "")
		if resp != nil {
			scopeHeader = resp.Header.Get("X-OAuth-Scopes")
		}
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	scopes := []string{}
	if scopeHeader != "" {
		scopes = strings.Split(strings.ReplaceAll(scopeHeader, " ", ""), ",")
	}

	return &TokenInfo{User: user.GetLogin(), Scopes: scopes}, nil
}

// validatePermissions checks that a classic token can write labels.
// Tokens without reported scopes are not checked.
func validatePermissions(scopes []string) error {
	if len(scopes) == 0 {
		return nil
	}

	for _, scope := range scopes {
		if scope == "repo" || scope == "public_repo" {
			return nil
		}
	}

	return fmt.Errorf("GitHub token missing required permissions: has %s, needs repo or public_repo",
		strings.Join(scopes, ", "))
}
