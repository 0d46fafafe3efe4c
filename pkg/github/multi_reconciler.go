package github

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MultiReconcilerConfig configures a MultiReconciler
type MultiReconcilerConfig struct {
	// Concurrency is the number of workers; 1 processes pairs sequentially
	Concurrency int
	// RateLimiter caps the worker count by its slot count when set
	RateLimiter RateLimiter
	Logger      *zap.Logger
}

// MultiReconciler runs a Reconciler over every (repository, label) pair
type MultiReconciler struct {
	reconciler  Reconciler
	concurrency int
	rateLimiter RateLimiter
	logger      *zap.Logger
}

// NewMultiReconciler creates a new multi-repository reconciler instance
func NewMultiReconciler(reconciler Reconciler, config MultiReconcilerConfig) *MultiReconciler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiReconciler{
		reconciler:  reconciler,
		concurrency: config.Concurrency,
		rateLimiter: config.RateLimiter,
		logger:      logger,
	}
}

// pairJob represents one (repository, label) reconciliation
type pairJob struct {
	index int
	repo  Repository
	label Label
}

// SyncAll reconciles every label against every repository, repositories
// outer and labels inner. A failed pair never stops the others. Once ctx is
// cancelled no new pair starts; pairs already running finish and the rest
// are reported as skipped.
func (mr *MultiReconciler) SyncAll(ctx context.Context, repos []Repository, labels []Label) *SyncResult {
	jobs := make([]pairJob, 0, len(repos)*len(labels))
	for _, repo := range repos {
		for _, label := range labels {
			jobs = append(jobs, pairJob{index: len(jobs), repo: repo, label: label})
		}
	}

	aggregator := NewResultAggregator(len(jobs))

	if len(jobs) > 0 {
		maxSlots := 0
		if mr.rateLimiter != nil {
			maxSlots = mr.rateLimiter.GetStats().MaxConcurrentSlots
		}
		numWorkers := OptimalWorkerCount(mr.concurrency, len(jobs), maxSlots)

		mr.logger.Debug("Starting label synchronization",
			zap.Int("repositories", len(repos)),
			zap.Int("labels", len(labels)),
			zap.Int("workers", numWorkers))

		mr.processJobsWithWorkerPool(ctx, jobs, numWorkers, aggregator)
	}

	result := aggregator.Result(func(i int) PairResult {
		return PairResult{Repository: jobs[i].repo, Label: jobs[i].label}
	})
	result.Summary.Repositories = len(repos)
	result.Summary.Labels = len(labels)

	if result.Summary.Skipped > 0 {
		mr.logger.Warn("Synchronization cancelled before all pairs started",
			zap.Int("skipped", result.Summary.Skipped))
	}

	return result
}

func (mr *MultiReconciler) processJobsWithWorkerPool(ctx context.Context, jobs []pairJob, numWorkers int, aggregator *ResultAggregator) {
	jobChan := make(chan pairJob)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mr.worker(ctx, jobChan, aggregator)
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case jobChan <- job:
		}
	}
	close(jobChan)

	wg.Wait()
}

func (mr *MultiReconciler) worker(ctx context.Context, jobs <-chan pairJob, aggregator *ResultAggregator) {
	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}

		// A started pair runs to completion even if the run is cancelled
		res := mr.reconciler.Reconcile(context.WithoutCancel(ctx), job.repo, job.label)
		aggregator.Add(job.index, res)

		if res.Outcome == OutcomeFailed {
			mr.logger.Warn("Label synchronization failed",
				zap.String("owner", job.repo.Owner),
				zap.String("repo", job.repo.Name),
				zap.String("label", job.label.Name),
				zap.Error(res.Err))
		}
	}
}
