package github

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LabelReconciler implements the Reconciler interface for one label on one
// repository.
type LabelReconciler struct {
	client   APIClient
	strategy Strategy
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler instance. A nil logger discards output.
func NewReconciler(client APIClient, strategy Strategy, logger *zap.Logger) *LabelReconciler {
	if strategy == "" {
		strategy = StrategyCreateFirst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelReconciler{
		client:   client,
		strategy: strategy,
		logger:   logger,
	}
}

// Strategy returns the strategy this reconciler applies
func (r *LabelReconciler) Strategy() Strategy {
	return r.strategy
}

// Reconcile makes label present on repo with the desired color and
// description. It never returns an error: failures are reported through
// the result.
func (r *LabelReconciler) Reconcile(ctx context.Context, repo Repository, label Label) PairResult {
	result := PairResult{Repository: repo, Label: label}

	var err error
	switch r.strategy {
	case StrategyPreCheck:
		result.Outcome, err = r.preCheck(ctx, repo, label)
	default:
		result.Outcome, err = r.createFirst(ctx, repo, label)
	}

	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
	}

	r.logger.Debug("Reconciled label",
		zap.String("owner", repo.Owner),
		zap.String("repo", repo.Name),
		zap.String("label", label.Name),
		zap.String("outcome", string(result.Outcome)))

	return result
}

// createFirst attempts creation and falls back to update when the label
// already exists.
func (r *LabelReconciler) createFirst(ctx context.Context, repo Repository, label Label) (Outcome, error) {
	_, err := r.client.CreateLabel(ctx, repo.Owner, repo.Name, label)
	if err == nil {
		return OutcomeCreated, nil
	}

	if !IsConflict(err) {
		return OutcomeFailed, fmt.Errorf("failed to create label: %w", err)
	}

	return r.update(ctx, repo, label)
}

// preCheck fetches the existing label first and only writes when it is
// missing or differs.
func (r *LabelReconciler) preCheck(ctx context.Context, repo Repository, label Label) (Outcome, error) {
	current, err := r.client.GetLabel(ctx, repo.Owner, repo.Name, label.Name)
	if err != nil {
		if !IsNotFound(err) {
			return OutcomeFailed, fmt.Errorf("failed to get label: %w", err)
		}
		// Missing: a concurrent creator may still win the race
		return r.createFirst(ctx, repo, label)
	}

	if current.Matches(label) {
		return OutcomeUnchanged, nil
	}

	return r.update(ctx, repo, label)
}

func (r *LabelReconciler) update(ctx context.Context, repo Repository, label Label) (Outcome, error) {
	if _, err := r.client.UpdateLabel(ctx, repo.Owner, repo.Name, label); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to update label: %w", err)
	}
	return OutcomeUpdated, nil
}
