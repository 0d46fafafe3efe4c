package github

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Enumerator lists the repositories targeted by a run
type Enumerator struct {
	client APIClient
	logger *zap.Logger
}

// NewEnumerator creates an enumerator. A nil logger discards output.
func NewEnumerator(client APIClient, logger *zap.Logger) *Enumerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enumerator{client: client, logger: logger}
}

// ListRepositories returns every repository under scope. On failure it
// returns the repositories collected so far together with an
// *EnumerationError.
func (e *Enumerator) ListRepositories(ctx context.Context, scope Scope) ([]Repository, error) {
	switch scope.Kind {
	case ScopeSingleRepo:
		return e.singleRepository(ctx, scope)
	case ScopeOrganization:
		return e.paginate(ctx, scope, func(ctx context.Context, page int) ([]Repository, error) {
			return e.client.ListOrgRepositories(ctx, scope.Name, page)
		})
	case ScopeAuthenticatedUser:
		return e.paginate(ctx, scope, e.client.ListUserRepositories)
	default:
		return []Repository{}, &EnumerationError{
			Scope: scope,
			Cause: NewError(ErrorTypeValidation, "unknown scope kind "+string(scope.Kind), nil),
		}
	}
}

func (e *Enumerator) singleRepository(ctx context.Context, scope Scope) ([]Repository, error) {
	owner := scope.Owner
	if owner == "" {
		owner = scope.Org
	}
	if owner == "" {
		login, err := e.client.GetAuthenticatedUser(ctx)
		if err != nil {
			return []Repository{}, &EnumerationError{Scope: scope, Cause: err}
		}
		owner = login
	}

	repo, err := e.client.GetRepository(ctx, owner, scope.Name)
	if err != nil {
		return []Repository{}, &EnumerationError{Scope: scope, Cause: err}
	}

	record := *repo
	if scope.Owner == "" && scope.Org != "" {
		record.Owner = scope.Org
	}
	if err := record.Validate(); err != nil {
		return []Repository{}, &EnumerationError{Scope: scope, Cause: err}
	}

	e.logger.Debug("Resolved repository", zap.String("owner", record.Owner), zap.String("repo", record.Name))
	return []Repository{record}, nil
}

type pageFunc func(ctx context.Context, page int) ([]Repository, error)

// paginate requests pages from 1 until a page comes back empty
func (e *Enumerator) paginate(ctx context.Context, scope Scope, list pageFunc) ([]Repository, error) {
	repos := []Repository{}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return repos, &EnumerationError{Scope: scope, Page: page, Cause: err}
		}

		batch, err := list(ctx, page)
		if err != nil {
			e.logger.Warn("Repository listing aborted",
				zap.Stringer("scope", scope),
				zap.Int("page", page),
				zap.Int("collected", len(repos)),
				zap.Error(err))
			return repos, &EnumerationError{Scope: scope, Page: page, Cause: err}
		}

		if len(batch) == 0 {
			break
		}

		for _, r := range batch {
			if scope.Kind == ScopeOrganization {
				r.Owner = scope.Name
			}
			if err := r.Validate(); err != nil {
				e.logger.Warn("Skipping invalid repository record", zap.Int("page", page), zap.Error(err))
				continue
			}
			repos = append(repos, r)
		}

		e.logger.Debug("Fetched repository page",
			zap.Stringer("scope", scope),
			zap.Int("page", page),
			zap.Int("count", len(batch)))
	}

	return repos, nil
}

// IsEnumerationError reports whether err is an *EnumerationError
func IsEnumerationError(err error) bool {
	var enumErr *EnumerationError
	return errors.As(err, &enumErr)
}
