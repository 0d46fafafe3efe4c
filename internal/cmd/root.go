package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weeklabel/pkg/config"
)

// Version is set at build time with -ldflags "-X weeklabel/internal/cmd.Version=..."
var Version = "dev"

var (
	configPath   string
	weeksFlag    string
	concurrency  int
	strategyFlag string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "weeklabel [CONFIG] [WEEKS]",
	Short: "Synchronize ISO week labels across GitHub repositories",
	Long: `Weeklabel keeps a rolling window of ISO week labels (week-2025-07, week-2025-08, ...)
on a set of GitHub repositories so that issues and pull requests can be tagged by
calendar week.

Each label gets a color from a light blue to purple gradient that follows the week
number. Existing labels are updated in place. Labels are never deleted.

TARGET REPOSITORIES:

• repo set in the config: only that repository ("name" or "owner/name")
• org_name set in the config: every repository of the organization
• neither: every repository of the authenticated user

Examples:
  # Sync the next 26 weeks using ./config.json
  weeklabel

  # Positional form: config file and number of weeks
  weeklabel my-config.json 8

  # Four workers, fetch labels before writing, JSON report
  weeklabel --concurrency 4 --strategy pre-check --output json`,
	Args:          cobra.MaximumNArgs(2),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

// Execute runs the root command. The first interrupt cancels the run; pairs
// already in flight finish before the report is printed. A second interrupt
// terminates the process.
func Execute() {
	ctx, stop := interruptContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// interruptContext is cancelled by the first SIGINT or SIGTERM. The signal
// handler is released at that point so the default action applies again.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to the JSON (or YAML) config file")
	rootCmd.Flags().StringVarP(&weeksFlag, "weeks", "w", "", "Number of weeks to label, starting with the current one (default: weeks_ahead from config, or 26)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of concurrent workers (default: concurrency from config, or 1)")
	rootCmd.Flags().StringVar(&strategyFlag, "strategy", "", "Label write strategy: create-first or pre-check (default: strategy from config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "Report format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(initCmd)
}
