package github

import "context"

// APIClient defines the GitHub API operations used by label synchronization
type APIClient interface {
	// Identity operations
	GetAuthenticatedUser(ctx context.Context) (string, error)
	GetOrganizationNodeID(ctx context.Context, org string) (string, error)

	// Repository operations
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	ListOrgRepositories(ctx context.Context, org string, page int) ([]Repository, error)
	ListUserRepositories(ctx context.Context, page int) ([]Repository, error)

	// Label operations
	GetLabel(ctx context.Context, owner, repo, name string) (*Label, error)
	CreateLabel(ctx context.Context, owner, repo string, label Label) (*Label, error)
	UpdateLabel(ctx context.Context, owner, repo string, label Label) (*Label, error)

	// CreateOrgLabel runs the GraphQL createLabel mutation against an owner node
	CreateOrgLabel(ctx context.Context, ownerID string, label Label) (string, error)
}

// Reconciler brings one label on one repository to the desired state
type Reconciler interface {
	Reconcile(ctx context.Context, repo Repository, label Label) PairResult
}

// Strategy selects how the reconciler discovers existing labels
type Strategy string

const (
	// StrategyCreateFirst creates and falls back to update on conflict
	StrategyCreateFirst Strategy = "create-first"
	// StrategyPreCheck fetches the label before deciding what to do
	StrategyPreCheck Strategy = "pre-check"
)

// ParseStrategy maps a config value to a Strategy. Empty means create-first.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyCreateFirst:
		return StrategyCreateFirst, nil
	case StrategyPreCheck:
		return StrategyPreCheck, nil
	default:
		return "", NewError(ErrorTypeValidation, "unknown strategy "+s, nil)
	}
}
