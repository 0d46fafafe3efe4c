package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklabel/pkg/config"
)

func TestNewAuthManager(t *testing.T) {
	am := NewAuthManager()
	assert.NotNil(t, am)
	assert.Nil(t, am.client)
	assert.Empty(t, am.token)
}

func TestAuthManager_GetToken(t *testing.T) {
	tests := []struct {
		name        string
		envToken    string
		config      *config.Config
		expected    string
		expectError bool
	}{
		{
			name:     "token from environment variable",
			envToken: "env_token_123",
			expected: "env_token_123",
		},
		{
			name:     "token from config file",
			config:   &config.Config{GitHubToken: "config_token_456"},
			expected: "config_token_456",
		},
		{
			name:     "environment variable takes precedence",
			envToken: "env_token_123",
			config:   &config.Config{GitHubToken: "config_token_456"},
			expected: "env_token_123",
		},
		{
			name:        "no token available",
			config:      &config.Config{},
			expectError: true,
		},
		{
			name:        "nil config and no env token",
			expectError: true,
		},
		{
			name:     "token with whitespace is trimmed",
			envToken: "  token_with_spaces  ",
			expected: "token_with_spaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GITHUB_TOKEN", tt.envToken)

			token, err := NewAuthManager().GetToken(tt.config)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "no GitHub token found")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, token)
			}
		})
	}
}

func TestAuthManager_Authenticate(t *testing.T) {
	am := NewAuthManager()

	_, err := am.Authenticate("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub token cannot be empty")

	client, err := am.Authenticate("valid_token_123")
	require.NoError(t, err)
	assert.Same(t, client, am.client)
	assert.Equal(t, "valid_token_123", am.token)
}

func TestAuthManager_ValidateToken(t *testing.T) {
	tests := []struct {
		name        string
		scopes      string
		status      int
		wantErr     string
		wantUser    string
		wantScopes  []string
		wantNilInfo bool
	}{
		{
			name:       "classic token with repo scope",
			scopes:     "repo, read:org",
			status:     http.StatusOK,
			wantUser:   "octocat",
			wantScopes: []string{"repo", "read:org"},
		},
		{
			name:       "fine-grained token reports no scopes",
			status:     http.StatusOK,
			wantUser:   "octocat",
			wantScopes: []string{},
		},
		{
			name:       "missing repo scope",
			scopes:     "read:user",
			status:     http.StatusOK,
			wantUser:   "octocat",
			wantScopes: []string{"read:user"},
			wantErr:    "missing required permissions",
		},
		{
			name:        "bad credentials",
			status:      http.StatusUnauthorized,
			wantErr:     "failed to validate GitHub token",
			wantNilInfo: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/user", r.URL.Path)
				if tt.scopes != "" {
					w.Header().Set("X-OAuth-Scopes", tt.scopes)
				}
				if tt.status != http.StatusOK {
					writeJSON(t, w, tt.status, map[string]string{"message": "Bad credentials"})
					return
				}
				writeJSON(t, w, http.StatusOK, map[string]string{"login": "octocat"})
			}))
			defer server.Close()

			serverURL, err := url.Parse(server.URL + "/")
			require.NoError(t, err)

			am := NewAuthManager()
			_, err = am.Authenticate("test-token", WithBaseURL(serverURL), WithRetryConfig(fastRetryConfig()))
			require.NoError(t, err)

			info, err := am.ValidateToken(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			if tt.wantNilInfo {
				assert.Nil(t, info)
				return
			}
			require.NotNil(t, info)
			assert.Equal(t, tt.wantUser, info.User)
			assert.Equal(t, tt.wantScopes, info.Scopes)
		})
	}
}

func TestAuthManager_ValidateToken_NotAuthenticated(t *testing.T) {
	_, err := NewAuthManager().ValidateToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}
