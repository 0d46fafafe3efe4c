package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weeklabel/pkg/config"
	"weeklabel/pkg/github"
	"weeklabel/pkg/weeks"
)

// clientOptions are appended to the options of every GitHub client the
// commands create.
var clientOptions []github.ClientOption

// syncOptions are the effective settings of one run after flag overrides
type syncOptions struct {
	WeeksAhead  int
	Concurrency int
	Strategy    github.Strategy
	ColorMode   string
	Rollover    weeks.Rollover
	Now         time.Time
}

func runSync(cmd *cobra.Command, args []string) error {
	path := configPath
	weeksInput := weeksFlag
	if len(args) > 0 {
		path = args[0]
	}
	if len(args) > 1 {
		weeksInput = args[1]
	}

	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}

	logger, runID := newLogger(cmd.ErrOrStderr(), verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfigFromPath(path)
	if err != nil {
		logger.Error("Failed to load configuration", zap.String("path", path), zap.Error(err))
		return err
	}

	opts, err := resolveOptions(cfg, weeksInput, logger)
	if err != nil {
		return err
	}

	report, err := syncLabels(cmd.Context(), cfg, opts, logger)
	if err != nil {
		logger.Error("Synchronization aborted", zap.Error(err))
		return err
	}
	report.RunID = runID

	return renderReport(cmd.OutOrStdout(), report, outputFormat)
}

// parseWeeks parses a weeks argument. Anything that is not a non-negative
// integer falls back to the default window with a warning.
func parseWeeks(input string, logger *zap.Logger) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		logger.Warn("Invalid weeks value, using default",
			zap.String("value", input),
			zap.Int("default", weeks.DefaultWeeksAhead))
		return weeks.DefaultWeeksAhead
	}
	return n
}

func resolveOptions(cfg *config.Config, weeksInput string, logger *zap.Logger) (syncOptions, error) {
	opts := syncOptions{
		WeeksAhead:  cfg.WeeksAhead,
		Concurrency: cfg.Concurrency,
		ColorMode:   cfg.ColorMode,
		Now:         time.Now(),
	}

	switch {
	case weeksInput != "":
		opts.WeeksAhead = parseWeeks(weeksInput, logger)
	case cfg.WeeksAhead < 0:
		logger.Warn("Invalid weeks_ahead in config, using default",
			zap.Int("value", cfg.WeeksAhead),
			zap.Int("default", weeks.DefaultWeeksAhead))
		opts.WeeksAhead = weeks.DefaultWeeksAhead
	}

	if concurrency != 0 {
		if concurrency < 1 || concurrency > config.MaxConcurrency {
			return opts, fmt.Errorf("--concurrency must be between 1 and %d", config.MaxConcurrency)
		}
		opts.Concurrency = concurrency
	}

	strategy := cfg.Strategy
	if strategyFlag != "" {
		strategy = strategyFlag
	}
	parsed, err := github.ParseStrategy(strategy)
	if err != nil {
		return opts, fmt.Errorf("invalid --strategy %q: must be %s or %s", strategy, github.StrategyCreateFirst, github.StrategyPreCheck)
	}
	opts.Strategy = parsed

	rollover, err := weeks.ParseRollover(cfg.Rollover)
	if err != nil {
		return opts, &config.Error{Cause: err}
	}
	opts.Rollover = rollover

	return opts, nil
}

func colorFunc(mode string) weeks.ColorFunc {
	if mode == config.ColorModeRandom {
		return weeks.RandomColor
	}
	return weeks.WeekColor
}

func toGitHubLabels(window []weeks.WeekLabel) []github.Label {
	labels := make([]github.Label, 0, len(window))
	for _, w := range window {
		labels = append(labels, github.Label{Name: w.Name, Color: w.Color, Description: w.Description})
	}
	return labels
}

// syncLabels runs enumeration, the optional organization bulk step and the
// per-repository reconciliation. Only configuration problems are returned as
// errors; everything else is recorded in the report.
func syncLabels(ctx context.Context, cfg *config.Config, opts syncOptions, logger *zap.Logger) (*syncReport, error) {
	authManager := github.NewAuthManager()
	token, err := authManager.GetToken(cfg)
	if err != nil {
		return nil, &config.Error{Cause: err}
	}

	limiterConfig := github.DefaultRateLimiterConfig()
	limiterConfig.ConcurrencyLimit = opts.Concurrency

	options := append([]github.ClientOption{github.WithRateLimiter(github.NewRateLimiter(limiterConfig))}, clientOptions...)
	client, err := authManager.Authenticate(token, options...)
	if err != nil {
		return nil, &config.Error{Cause: err}
	}

	tokenInfo, err := authManager.ValidateToken(ctx)
	switch {
	case err == nil:
		logger.Info("Authenticated", zap.String("user", tokenInfo.User))
	case github.ErrorTypeOf(err) == github.ErrorTypeAuth:
		return nil, &config.Error{Cause: fmt.Errorf("GitHub rejected the configured token: %w", err)}
	case tokenInfo != nil:
		logger.Warn("Token may not be able to write labels", zap.String("user", tokenInfo.User), zap.Error(err))
	default:
		logger.Warn("Could not validate GitHub token", zap.Error(err))
	}

	window := weeks.Generate(opts.Now, opts.WeeksAhead,
		weeks.WithColorFunc(colorFunc(opts.ColorMode)),
		weeks.WithRollover(opts.Rollover))
	labels := toGitHubLabels(window)

	scope := github.ResolveScope(cfg.Repo, cfg.OrgName)
	report := newSyncReport(scope, opts.Strategy, window)

	repos, err := github.NewEnumerator(client, logger).ListRepositories(ctx, scope)
	if err != nil {
		logger.Warn("Repository enumeration incomplete", zap.Int("repositories", len(repos)), zap.Error(err))
		report.EnumerationError = err.Error()
	}
	logger.Info("Enumerated repositories",
		zap.Stringer("scope", scope),
		zap.Int("repositories", len(repos)),
		zap.Int("labels", len(labels)))

	if cfg.OrgBulkCreate {
		if scope.Kind != github.ScopeOrganization {
			logger.Warn("org_bulk_create only applies to organization scope; skipping", zap.Stringer("scope", scope))
		} else {
			report.setBulk(runBulkCreate(ctx, client, scope.Name, labels, logger))
		}
	}

	reconciler := github.NewReconciler(client, opts.Strategy, logger)
	multi := github.NewMultiReconciler(reconciler, github.MultiReconcilerConfig{
		Concurrency: opts.Concurrency,
		RateLimiter: client.RateLimiter(),
		Logger:      logger,
	})

	result := multi.SyncAll(ctx, repos, labels)
	report.setResult(result)

	stats := client.RateLimiter().GetStats()
	logger.Debug("Rate limiter statistics",
		zap.Int("remaining", stats.RemainingRequests),
		zap.Time("reset", stats.ResetTime),
		zap.Int64("waits", stats.TotalWaits),
		zap.Duration("waited", stats.TotalDelayTime))

	logger.Info("Synchronization finished",
		zap.Int("created", result.Summary.Created),
		zap.Int("updated", result.Summary.Updated),
		zap.Int("unchanged", result.Summary.Unchanged),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("skipped", result.Summary.Skipped))

	return report, nil
}

type bulkOutcome struct {
	results []github.BulkResult
	err     error
}

func runBulkCreate(ctx context.Context, client github.APIClient, org string, labels []github.Label, logger *zap.Logger) bulkOutcome {
	bulk := github.NewBulkCreator(client, logger)

	ownerID, err := bulk.ResolveOwnerID(ctx, org)
	if err != nil {
		logger.Warn("Organization lookup failed; skipping organization labels", zap.String("org", org), zap.Error(err))
		return bulkOutcome{err: err}
	}

	return bulkOutcome{results: bulk.CreateOrgLabels(ctx, ownerID, labels)}
}
