package github

import (
	"fmt"
	"strings"
)

// Repository is a target repository for label synchronization
type Repository struct {
	ID       int64  `json:"id,omitempty" yaml:"id,omitempty"`
	NodeID   string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Owner    string `json:"owner" yaml:"owner"`
	Name     string `json:"name" yaml:"name"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
}

// Validate checks that the fields needed to address the repository are set
func (r Repository) Validate() error {
	record := r.FullName
	if record == "" && r.ID != 0 {
		record = fmt.Sprintf("#%d", r.ID)
	}
	if r.Name == "" {
		return &MissingFieldError{Field: "name", Record: record}
	}
	if r.Owner == "" {
		return &MissingFieldError{Field: "owner.login", Record: record}
	}
	return nil
}

// String returns owner/name
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Label is a repository or organization label
type Label struct {
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
}

// Matches reports whether l already carries the color and description of
// want. GitHub treats colors case-insensitively.
func (l Label) Matches(want Label) bool {
	return strings.EqualFold(l.Color, want.Color) && l.Description == want.Description
}

// ScopeKind selects which repositories a run targets
type ScopeKind string

const (
	ScopeSingleRepo        ScopeKind = "repository"
	ScopeOrganization      ScopeKind = "organization"
	ScopeAuthenticatedUser ScopeKind = "user"
)

// Scope is the resolved enumeration target
type Scope struct {
	Kind ScopeKind `json:"kind" yaml:"kind"`
	// Owner is set for a single repository given as owner/name.
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`
	// Name is the repository name or organization login.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Org is the configured organization, used to own a bare repository name.
	Org string `json:"org,omitempty" yaml:"org,omitempty"`
}

// ResolveScope applies the scope precedence: a configured repository wins
// over an organization, which wins over the authenticated user.
func ResolveScope(repo, org string) Scope {
	repo = strings.Trim(strings.TrimSpace(repo), "/")
	org = strings.TrimSpace(org)

	if repo != "" {
		scope := Scope{Kind: ScopeSingleRepo, Name: repo, Org: org}
		if i := strings.Index(repo, "/"); i >= 0 {
			scope.Owner, scope.Name = repo[:i], repo[i+1:]
		}
		return scope
	}
	if org != "" {
		return Scope{Kind: ScopeOrganization, Name: org}
	}
	return Scope{Kind: ScopeAuthenticatedUser}
}

// String renders the scope for logs and errors
func (s Scope) String() string {
	switch s.Kind {
	case ScopeSingleRepo:
		switch {
		case s.Owner != "":
			return fmt.Sprintf("repository %s/%s", s.Owner, s.Name)
		case s.Org != "":
			return fmt.Sprintf("repository %s/%s", s.Org, s.Name)
		default:
			return fmt.Sprintf("repository %s", s.Name)
		}
	case ScopeOrganization:
		return fmt.Sprintf("organization %s", s.Name)
	default:
		return "authenticated user"
	}
}

// Outcome is the result of reconciling one label against one repository
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped marks pairs never started because the run was cancelled.
	OutcomeSkipped Outcome = "skipped"
)

// PairResult is the outcome of one (repository, label) pair
type PairResult struct {
	Repository Repository `json:"repository" yaml:"repository"`
	Label      Label      `json:"label" yaml:"label"`
	Outcome    Outcome    `json:"outcome" yaml:"outcome"`
	Err        error      `json:"-" yaml:"-"`
}

// Error returns the failure message, or "" for successful pairs
func (p PairResult) Error() string {
	if p.Err == nil {
		return ""
	}
	return p.Err.Error()
}

// SyncSummary counts pair outcomes over one run
type SyncSummary struct {
	Repositories int `json:"repositories" yaml:"repositories"`
	Labels       int `json:"labels" yaml:"labels"`
	Pairs        int `json:"pairs" yaml:"pairs"`
	Created      int `json:"created" yaml:"created"`
	Updated      int `json:"updated" yaml:"updated"`
	Unchanged    int `json:"unchanged" yaml:"unchanged"`
	Failed       int `json:"failed" yaml:"failed"`
	Skipped      int `json:"skipped" yaml:"skipped"`
}

// Add counts one outcome
func (s *SyncSummary) Add(outcome Outcome) {
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// SyncResult holds every pair result of a run in job order
type SyncResult struct {
	Results []PairResult `json:"results" yaml:"results"`
	Summary SyncSummary  `json:"summary" yaml:"summary"`
}

// Failures returns the failed pairs
func (r *SyncResult) Failures() []PairResult {
	var failed []PairResult
	for _, p := range r.Results {
		if p.Outcome == OutcomeFailed {
			failed = append(failed, p)
		}
	}
	return failed
}

// BulkResult is the outcome of one organization-level label creation
type BulkResult struct {
	Label   Label  `json:"label" yaml:"label"`
	Created bool   `json:"created" yaml:"created"`
	Err     error  `json:"-" yaml:"-"`
	LabelID string `json:"label_id,omitempty" yaml:"label_id,omitempty"`
}
