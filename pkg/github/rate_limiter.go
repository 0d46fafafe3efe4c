package github

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// RateLimiter paces GitHub API calls shared by every worker of a run
type RateLimiter interface {
	// Wait blocks until it's safe to make an API call
	Wait(ctx context.Context) error

	// UpdateLimits records the rate limit headers of the last response
	UpdateLimits(limit, remaining int, reset time.Time)

	// GetDelay returns the current delay before the next API call
	GetDelay() time.Duration

	// AcquireSlot acquires a slot for an in-flight request (blocks if limit reached)
	AcquireSlot(ctx context.Context) error

	// ReleaseSlot releases a slot acquired with AcquireSlot
	ReleaseSlot()

	// GetStats returns current rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter usage
type RateLimiterStats struct {
	Limit              int           `json:"limit"`
	RemainingRequests  int           `json:"remaining_requests"`
	ResetTime          time.Time     `json:"reset_time"`
	CurrentDelay       time.Duration `json:"current_delay"`
	ConcurrentSlots    int           `json:"concurrent_slots"`
	MaxConcurrentSlots int           `json:"max_concurrent_slots"`
	TotalWaits         int64         `json:"total_waits"`
	TotalDelayTime     time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig configures the rate limiter behavior
type RateLimiterConfig struct {
	// BaseDelay is the minimum delay between requests
	BaseDelay time.Duration

	// MaxDelay caps every computed delay except a wait for an exhausted quota
	MaxDelay time.Duration

	// BackoffFactor is the exponential backoff multiplier
	BackoffFactor float64

	// Jitter adds randomness to delays to avoid thundering herd
	Jitter float64

	// ConcurrencyLimit is the maximum number of in-flight requests
	ConcurrencyLimit int

	// MinRemainingRequests is the threshold below which we start aggressive throttling
	MinRemainingRequests int

	// AggressiveThrottleDelay is the delay when remaining requests are low
	AggressiveThrottleDelay time.Duration
}

// DefaultRateLimiterConfig returns a default rate limiter configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		BaseDelay:               100 * time.Millisecond,
		MaxDelay:                30 * time.Second,
		BackoffFactor:           2.0,
		Jitter:                  0.1,
		ConcurrencyLimit:        5,
		MinRemainingRequests:    100,
		AggressiveThrottleDelay: 2 * time.Second,
	}
}

// defaultHourlyLimit is the authenticated REST quota assumed until the first
// response reports the real one.
const defaultHourlyLimit = 5000

// quota is the request budget GitHub reported on the latest response
type quota struct {
	limit     int
	remaining int
	reset     time.Time
}

func (q quota) expired(now time.Time) bool {
	return now.After(q.reset)
}

// low reports whether less than a tenth of the hourly budget is left.
func (q quota) low() bool {
	return q.remaining < q.limit/10
}

// used is the fraction of the budget already spent, in [0, 1].
func (q quota) used() float64 {
	if q.limit <= 0 {
		return 0
	}
	return float64(q.limit-q.remaining) / float64(q.limit)
}

type sharedLimiter struct {
	cfg   RateLimiterConfig
	slots chan struct{}

	mu    sync.Mutex
	quota quota
	last  time.Time
	stats RateLimiterStats
}

// NewRateLimiter returns a limiter shared by every worker of a run. A nil
// config selects DefaultRateLimiterConfig; at least one slot is always
// available.
func NewRateLimiter(config *RateLimiterConfig) RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	slots := max(config.ConcurrencyLimit, 1)

	l := &sharedLimiter{
		cfg:   *config,
		slots: make(chan struct{}, slots),
		quota: quota{
			limit:     defaultHourlyLimit,
			remaining: defaultHourlyLimit,
			reset:     time.Now().Add(time.Hour),
		},
	}
	l.stats.MaxConcurrentSlots = slots
	return l
}

func (l *sharedLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	delay := l.delay(time.Now())
	if delay > 0 {
		l.stats.TotalWaits++
		l.stats.TotalDelayTime += delay
	}
	l.mu.Unlock()

	if delay > 0 {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()
	return ctx.Err()
}

func (l *sharedLimiter) UpdateLimits(limit, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit > 0 {
		l.quota.limit = limit
	}
	l.quota.remaining = remaining
	l.quota.reset = reset
}

func (l *sharedLimiter) GetDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delay(time.Now())
}

func (l *sharedLimiter) AcquireSlot(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	l.stats.ConcurrentSlots++
	l.mu.Unlock()
	return nil
}

// ReleaseSlot is a no-op when no slot is held.
func (l *sharedLimiter) ReleaseSlot() {
	select {
	case <-l.slots:
	default:
		return
	}

	l.mu.Lock()
	l.stats.ConcurrentSlots--
	l.mu.Unlock()
}

func (l *sharedLimiter) GetStats() RateLimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := l.stats
	stats.Limit = l.quota.limit
	stats.RemainingRequests = l.quota.remaining
	stats.ResetTime = l.quota.reset
	stats.CurrentDelay = l.delay(time.Now())
	return stats
}

// delay is the wait owed before the next request. An exhausted quota waits
// for the reset without the MaxDelay cap. Callers hold l.mu.
func (l *sharedLimiter) delay(now time.Time) time.Duration {
	if l.quota.expired(now) {
		return 0
	}
	if l.quota.remaining <= 0 {
		return l.quota.reset.Sub(now)
	}

	d := max(l.pacing(now), l.throttle(), l.backoff())
	if d <= 0 {
		return 0
	}

	if l.cfg.Jitter > 0 {
		d += time.Duration(rand.Float64() * l.cfg.Jitter * float64(d))
	}
	if l.cfg.MaxDelay > 0 {
		d = min(d, l.cfg.MaxDelay)
	}
	return d
}

// pacing keeps consecutive requests at least BaseDelay apart.
func (l *sharedLimiter) pacing(now time.Time) time.Duration {
	if l.last.IsZero() {
		return 0
	}
	return l.cfg.BaseDelay - now.Sub(l.last)
}

// throttle grows linearly towards AggressiveThrottleDelay as the remaining
// budget drops below MinRemainingRequests.
func (l *sharedLimiter) throttle() time.Duration {
	floor := l.cfg.MinRemainingRequests
	if floor <= 0 || l.quota.remaining >= floor {
		return 0
	}
	left := float64(l.quota.remaining) / float64(floor)
	return time.Duration(float64(l.cfg.AggressiveThrottleDelay) * (1 - left))
}

// backoff grows exponentially with the spent budget once the quota is low.
func (l *sharedLimiter) backoff() time.Duration {
	if !l.quota.low() {
		return 0
	}
	return time.Duration(float64(l.cfg.BaseDelay) * math.Pow(l.cfg.BackoffFactor, 5*l.quota.used()))
}
