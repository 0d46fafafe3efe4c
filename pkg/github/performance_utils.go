package github

import "sync"

// OptimalWorkerCount bounds the requested worker count by the number of
// jobs and the rate limiter's slots. It is at least 1.
func OptimalWorkerCount(requested, jobCount, rateLimiterMaxSlots int) int {
	workers := requested
	if workers < 1 {
		workers = 1
	}

	if rateLimiterMaxSlots > 0 && workers > rateLimiterMaxSlots {
		workers = rateLimiterMaxSlots
	}
	if jobCount > 0 && workers > jobCount {
		workers = jobCount
	}

	return max(workers, 1)
}

// ResultAggregator collects pair results from concurrent workers, keeping
// them in job order.
type ResultAggregator struct {
	mu      sync.Mutex
	results []PairResult
	filled  []bool
}

// NewResultAggregator creates an aggregator for the given number of jobs
func NewResultAggregator(expectedResults int) *ResultAggregator {
	return &ResultAggregator{
		results: make([]PairResult, expectedResults),
		filled:  make([]bool, expectedResults),
	}
}

// Add records the result of job index
func (ra *ResultAggregator) Add(index int, result PairResult) {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	ra.results[index] = result
	ra.filled[index] = true
}

// Result returns the aggregated results. Jobs that never reported are
// filled from pending and marked skipped.
func (ra *ResultAggregator) Result(pending func(index int) PairResult) *SyncResult {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	out := &SyncResult{Results: make([]PairResult, len(ra.results))}
	for i, res := range ra.results {
		if !ra.filled[i] {
			res = pending(i)
			res.Outcome = OutcomeSkipped
		}
		out.Results[i] = res
		out.Summary.Add(res.Outcome)
	}
	out.Summary.Pairs = len(out.Results)
	return out
}
