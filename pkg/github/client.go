package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// UserAgent is sent with every request
const UserAgent = "week-labeler"

// ReposPerPage is the page size used when listing repositories
const ReposPerPage = 100

// Client implements the APIClient interface using the GitHub REST and GraphQL APIs
type Client struct {
	client  *github.Client
	limiter RateLimiter
	retry   *RetryConfig
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise server (https://host/api/v3/) or a test server. The URL must end
// with a slash. GraphQL requests go to graphQLEndpoint of this URL.
func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) {
		c.client.BaseURL = baseURL
	}
}

// WithRateLimiter shares a rate limiter between clients
func WithRateLimiter(limiter RateLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRetryConfig overrides the retry policy applied to every call
func WithRetryConfig(config *RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = config
	}
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string, opts ...ClientOption) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	gh := github.NewClient(tc)
	gh.UserAgent = UserAgent

	c := &Client{
		client:  gh,
		limiter: NewRateLimiter(nil),
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimiter returns the limiter pacing this client
func (c *Client) RateLimiter() RateLimiter {
	return c.limiter
}

// call runs one API request under the rate limiter and the retry policy
func (c *Client) call(ctx context.Context, resource string, fn func(ctx context.Context) (*github.Response, error)) error {
	return WithRetry(ctx, func() error {
		if err := c.limiter.AcquireSlot(ctx); err != nil {
			return err
		}
		defer c.limiter.ReleaseSlot()

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := fn(ctx)
		if resp != nil && resp.Rate.Limit > 0 {
			c.limiter.UpdateLimits(resp.Rate.Limit, resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
		if err != nil {
			return WrapGitHubError(err, resource)
		}
		return nil
	}, c.retry)
}

// GetAuthenticatedUser returns the login of the token owner
func (c *Client) GetAuthenticatedUser(ctx context.Context) (string, error) {
	var user *github.User

	err := c.call(ctx, "authenticated user", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = c.client.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return "", err
	}

	if user.GetLogin() == "" {
		return "", NewError(ErrorTypeValidation, "authenticated user has no login", nil)
	}
	return user.GetLogin(), nil
}

// GetOrganizationNodeID returns the GraphQL node ID of an organization
func (c *Client) GetOrganizationNodeID(ctx context.Context, org string) (string, error) {
	var organization *github.Organization

	err := c.call(ctx, fmt.Sprintf("organization %s", org), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		organization, resp, err = c.client.Organizations.Get(ctx, org)
		return resp, err
	})
	if err != nil {
		return "", err
	}

	if organization.GetNodeID() == "" {
		return "", NewError(ErrorTypeValidation, fmt.Sprintf("organization %s has no node ID", org), nil)
	}
	return organization.GetNodeID(), nil
}

// GetRepository retrieves a repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo *github.Repository

	err := c.call(ctx, fmt.Sprintf("repository %s/%s", owner, name), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = c.client.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	converted := convertGitHubRepository(repo)
	return &converted, nil
}

// ListOrgRepositories returns one page of an organization's repositories
func (c *Client) ListOrgRepositories(ctx context.Context, org string, page int) ([]Repository, error) {
	var repos []*github.Repository

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: ReposPerPage, Page: page},
	}

	err := c.call(ctx, fmt.Sprintf("repositories of organization %s", org), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		repos, resp, err = c.client.Repositories.ListByOrg(ctx, org, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubRepositories(repos), nil
}

// ListUserRepositories returns one page of the authenticated user's repositories
func (c *Client) ListUserRepositories(ctx context.Context, page int) ([]Repository, error) {
	var repos []*github.Repository

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: ReposPerPage, Page: page},
	}

	err := c.call(ctx, "repositories of authenticated user", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		repos, resp, err = c.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return convertGitHubRepositories(repos), nil
}

// GetLabel retrieves a label by name
func (c *Client) GetLabel(ctx context.Context, owner, repo, name string) (*Label, error) {
	var label *github.Label

	err := c.call(ctx, labelResource(owner, repo, name), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		label, resp, err = c.client.Issues.GetLabel(ctx, owner, repo, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	converted := convertGitHubLabel(label)
	return &converted, nil
}

// CreateLabel creates a label. An existing label with the same name yields
// an error for which IsConflict reports true.
func (c *Client) CreateLabel(ctx context.Context, owner, repo string, label Label) (*Label, error) {
	var created *github.Label

	err := c.call(ctx, labelResource(owner, repo, label.Name), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		created, resp, err = c.client.Issues.CreateLabel(ctx, owner, repo, toGitHubLabel(label))
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	converted := convertGitHubLabel(created)
	return &converted, nil
}

// UpdateLabel sets the color and description of an existing label
func (c *Client) UpdateLabel(ctx context.Context, owner, repo string, label Label) (*Label, error) {
	var updated *github.Label

	err := c.call(ctx, labelResource(owner, repo, label.Name), func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		updated, resp, err = c.client.Issues.EditLabel(ctx, owner, repo, label.Name, toGitHubLabel(label))
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	converted := convertGitHubLabel(updated)
	return &converted, nil
}

const createLabelMutation = `mutation CreateLabel($input: CreateLabelInput!) {
  createLabel(input: $input) {
    label {
      id
      name
    }
  }
}`

// labelsPreviewAccept enables the createLabel mutation
const labelsPreviewAccept = "application/vnd.github.bane-preview+json"

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type createLabelResponse struct {
	Data struct {
		CreateLabel *struct {
			Label struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"label"`
		} `json:"createLabel"`
	} `json:"data"`
	Errors GraphQLErrors `json:"errors"`
}

// graphQLEndpoint resolves the GraphQL URL for a REST base URL. GitHub
// Enterprise serves REST under /api/v3/ but GraphQL under /api/graphql.
func graphQLEndpoint(base *url.URL) string {
	if base == nil || !strings.HasSuffix(base.Path, "/api/v3/") {
		return "graphql"
	}
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "v3/") + "graphql"
	return u.String()
}

// CreateOrgLabel creates a label owned by the node ownerID through the
// GraphQL createLabel mutation and returns the new label's node ID.
func (c *Client) CreateOrgLabel(ctx context.Context, ownerID string, label Label) (string, error) {
	body := graphQLRequest{
		Query: createLabelMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"ownerId":     ownerID,
				"name":        label.Name,
				"color":       label.Color,
				"description": label.Description,
			},
		},
	}

	resource := fmt.Sprintf("organization label %s", label.Name)
	var out createLabelResponse

	err := c.call(ctx, resource, func(ctx context.Context) (*github.Response, error) {
		req, err := c.client.NewRequest(http.MethodPost, graphQLEndpoint(c.client.BaseURL), body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", labelsPreviewAccept)

		out = createLabelResponse{}
		resp, err := c.client.Do(ctx, req, &out)
		if err != nil {
			return resp, err
		}
		if len(out.Errors) > 0 {
			return resp, out.Errors.asError(resource)
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	if out.Data.CreateLabel == nil {
		return "", NewError(ErrorTypeUnknown, "createLabel returned no label", nil)
	}
	return out.Data.CreateLabel.Label.ID, nil
}

// GraphQLError is one entry of a GraphQL errors payload
type GraphQLError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// GraphQLErrors is the errors payload of a GraphQL response
type GraphQLErrors []GraphQLError

// Error implements the error interface
func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e GraphQLErrors) asError(resource string) *Error {
	errorType := ErrorTypeValidation
	for _, ge := range e {
		switch {
		case ge.Type == "RATE_LIMITED":
			errorType = ErrorTypeRateLimit
		case ge.Type == "NOT_FOUND":
			errorType = ErrorTypeNotFound
		case ge.Type == "FORBIDDEN":
			errorType = ErrorTypePermission
		case strings.Contains(strings.ToLower(ge.Message), "already"):
			errorType = ErrorTypeConflict
		}
	}

	ghErr := NewError(errorType, e.Error(), e)
	ghErr.Resource = resource
	return ghErr
}

func labelResource(owner, repo, name string) string {
	return fmt.Sprintf("label %s on %s/%s", name, owner, repo)
}

func toGitHubLabel(label Label) *github.Label {
	return &github.Label{
		Name:        github.String(label.Name),
		Color:       github.String(label.Color),
		Description: github.String(label.Description),
	}
}

func convertGitHubLabel(label *github.Label) Label {
	return Label{
		Name:        label.GetName(),
		Color:       label.GetColor(),
		Description: label.GetDescription(),
	}
}

// convertGitHubRepository converts a GitHub repository to our Repository type.
// The owner is the embedded owner login, which may be empty on a malformed
// record; callers run Validate before use.
func convertGitHubRepository(repo *github.Repository) Repository {
	return Repository{
		ID:       repo.GetID(),
		NodeID:   repo.GetNodeID(),
		Owner:    repo.GetOwner().GetLogin(),
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
	}
}

func convertGitHubRepositories(repos []*github.Repository) []Repository {
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, convertGitHubRepository(r))
	}
	return out
}
