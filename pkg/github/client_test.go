package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestClient creates a client configured to use a test server backed by mux
func createTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	// The base URL must have a trailing slash
	serverURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)

	return NewClient("test-token",
		WithBaseURL(serverURL),
		WithRetryConfig(fastRetryConfig()),
		WithRateLimiter(NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 4})),
	)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-token")

	require.NotNil(t, client)
	assert.Equal(t, UserAgent, client.client.UserAgent)
	assert.NotNil(t, client.RateLimiter())
	assert.Implements(t, (*APIClient)(nil), client)
}

func TestClient_SendsTokenAndUserAgent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "week-labeler", r.Header.Get("User-Agent"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id": 42, "node_id": "R_kgDO", "name": "widgets", "full_name": "acme/widgets",
			"owner": map[string]any{"login": "acme"},
		})
	})

	repo, err := createTestClient(t, mux).GetRepository(context.Background(), "acme", "widgets")

	require.NoError(t, err)
	assert.Equal(t, &Repository{ID: 42, NodeID: "R_kgDO", Owner: "acme", Name: "widgets", FullName: "acme/widgets"}, repo)
}

func TestClient_GetRepositoryNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})

	_, err := createTestClient(t, mux).GetRepository(context.Background(), "acme", "missing")

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "repository acme/missing")
}

func TestClient_ListOrgRepositories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "a", "owner": map[string]any{"login": "acme"}},
			{"id": 2, "name": "b", "owner": map[string]any{"login": "acme"}},
		})
	})

	repos, err := createTestClient(t, mux).ListOrgRepositories(context.Background(), "acme", 2)

	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "a", repos[0].Name)
	assert.Equal(t, "acme", repos[1].Owner)
}

func TestClient_ListUserRepositories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"id": 7, "name": "dotfiles", "owner": map[string]any{"login": "octocat"}},
			{"id": 8, "name": "no-owner"},
		})
	})

	repos, err := createTestClient(t, mux).ListUserRepositories(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octocat", repos[0].Owner)
	assert.Empty(t, repos[1].Owner)
	assert.Error(t, repos[1].Validate())
}

func TestClient_ListUndecodablePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := createTestClient(t, mux).ListUserRepositories(context.Background(), 1)
	assert.Error(t, err)
}

func TestClient_CreateLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/widgets/labels", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"name": "week-2025-07", "color": "4190d6", "description": "ISO week week-2025-07",
		}, body)
		writeJSON(t, w, http.StatusCreated, body)
	})

	label, err := createTestClient(t, mux).CreateLabel(context.Background(), "acme", "widgets", week07)

	require.NoError(t, err)
	assert.Equal(t, week07, *label)
}

func TestClient_CreateLabelConflict(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/widgets/labels", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]string{{"resource": "Label", "code": "already_exists", "field": "name"}},
		})
	})

	_, err := createTestClient(t, mux).CreateLabel(context.Background(), "acme", "widgets", week07)

	assert.True(t, IsConflict(err))
	assert.Equal(t, int32(1), calls.Load(), "conflicts are not retried")
}

func TestClient_UpdateLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /repos/acme/widgets/labels/week-2025-07", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "4190d6", body["color"])
		writeJSON(t, w, http.StatusOK, body)
	})

	label, err := createTestClient(t, mux).UpdateLabel(context.Background(), "acme", "widgets", week07)

	require.NoError(t, err)
	assert.Equal(t, week07.Color, label.Color)
}

func TestClient_GetLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/labels/week-2025-07", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"name": "week-2025-07", "color": "4190D6", "description": "ISO week week-2025-07"})
	})
	mux.HandleFunc("GET /repos/acme/widgets/labels/week-2025-08", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	client := createTestClient(t, mux)

	label, err := client.GetLabel(context.Background(), "acme", "widgets", "week-2025-07")
	require.NoError(t, err)
	assert.True(t, label.Matches(week07))

	_, err = client.GetLabel(context.Background(), "acme", "widgets", "week-2025-08")
	assert.True(t, IsNotFound(err))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/widgets/labels", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(t, w, http.StatusBadGateway, map[string]string{"message": "Bad Gateway"})
			return
		}
		writeJSON(t, w, http.StatusCreated, map[string]string{"name": week07.Name, "color": week07.Color})
	})

	_, err := createTestClient(t, mux).CreateLabel(context.Background(), "acme", "widgets", week07)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_UpdatesRateLimiter(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4321")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		writeJSON(t, w, http.StatusOK, map[string]string{"login": "octocat"})
	})
	client := createTestClient(t, mux)

	login, err := client.GetAuthenticatedUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "octocat", login)

	stats := client.RateLimiter().GetStats()
	assert.Equal(t, 4321, stats.RemainingRequests)
	assert.Equal(t, reset.Unix(), stats.ResetTime.Unix())
}

func TestClient_GetOrganizationNodeID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"login": "acme", "node_id": "O_kgDOacme"})
	})

	id, err := createTestClient(t, mux).GetOrganizationNodeID(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "O_kgDOacme", id)
}

func TestClient_CreateOrgLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "createLabel")

		input, ok := req.Variables["input"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "O_kgDOacme", input["ownerId"])
		assert.Equal(t, week07.Name, input["name"])
		assert.Equal(t, week07.Color, input["color"])
		assert.Equal(t, week07.Description, input["description"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{"createLabel": map[string]any{"label": map[string]string{"id": "LA_1", "name": week07.Name}}},
		})
	})

	id, err := createTestClient(t, mux).CreateOrgLabel(context.Background(), "O_kgDOacme", week07)

	require.NoError(t, err)
	assert.Equal(t, "LA_1", id)
}

func TestGraphQLEndpoint(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "github.com", base: "https://api.github.com/", want: "graphql"},
		{name: "enterprise server", base: "https://ghe.example.com/api/v3/", want: "https://ghe.example.com/api/graphql"},
		{name: "test server", base: "http://127.0.0.1:8080/", want: "graphql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, graphQLEndpoint(base))
		})
	}
}

func TestClient_CreateOrgLabelEnterprise(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/graphql", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{"createLabel": map[string]any{"label": map[string]string{"id": "LA_9", "name": week07.Name}}},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	baseURL, err := url.Parse(server.URL + "/api/v3/")
	require.NoError(t, err)

	client := NewClient("test-token", WithBaseURL(baseURL), WithRetryConfig(fastRetryConfig()),
		WithRateLimiter(NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 1})))

	id, err := client.CreateOrgLabel(context.Background(), "O_kgDOacme", week07)

	require.NoError(t, err)
	assert.Equal(t, "LA_9", id)
}

func TestClient_CreateOrgLabelErrors(t *testing.T) {
	tests := []struct {
		name     string
		errType  string
		message  string
		wantType ErrorType
	}{
		{name: "name taken", errType: "UNPROCESSABLE", message: "Name has already been taken", wantType: ErrorTypeConflict},
		{name: "owner missing", errType: "NOT_FOUND", message: "Could not resolve to a node", wantType: ErrorTypeNotFound},
		{name: "other", message: "Something went wrong", wantType: ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(t, w, http.StatusOK, map[string]any{
					"data":   map[string]any{"createLabel": nil},
					"errors": []map[string]string{{"type": tt.errType, "message": tt.message}},
				})
			})

			_, err := createTestClient(t, mux).CreateOrgLabel(context.Background(), "O_kgDOacme", week07)

			require.Error(t, err)
			assert.Equal(t, tt.wantType, ErrorTypeOf(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_CancelledContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := createTestClient(t, mux).GetAuthenticatedUser(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func ExampleResolveScope() {
	fmt.Println(ResolveScope("widgets", "acme"))
	fmt.Println(ResolveScope("", "acme"))
	fmt.Println(ResolveScope("", ""))
	// Output:
	// repository acme/widgets
	// organization acme
	// authenticated user
}
