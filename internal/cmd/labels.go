package cmd

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"weeklabel/pkg/config"
	"weeklabel/pkg/weeks"
)

var (
	labelsWeeks     string
	labelsFrom      string
	labelsColorMode string
	labelsRollover  string
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Preview the week labels a run would write",
	Long: `Print the week labels for a window without contacting GitHub.

Examples:
  # The next 26 weeks
  weeklabel labels

  # Eight weeks starting with the week of 2026-12-21, with real ISO rollover
  weeklabel labels --weeks 8 --from 2026-12-21 --rollover iso`,
	Args: cobra.NoArgs,
	RunE: runLabels,
}

func init() {
	labelsCmd.Flags().StringVarP(&labelsWeeks, "weeks", "w", "", "Number of weeks to show (default 26)")
	labelsCmd.Flags().StringVar(&labelsFrom, "from", "", "Reference date as YYYY-MM-DD (default today)")
	labelsCmd.Flags().StringVar(&labelsColorMode, "color-mode", config.ColorModeGradient, "Label colors: gradient or random")
	labelsCmd.Flags().StringVar(&labelsRollover, "rollover", config.RolloverFixed52, "Year rollover: fixed52 or iso")
}

func runLabels(cmd *cobra.Command, _ []string) error {
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}

	logger, _ := newLogger(cmd.ErrOrStderr(), verbose)
	defer func() { _ = logger.Sync() }()

	ref := time.Now()
	if labelsFrom != "" {
		parsed, err := time.Parse(time.DateOnly, labelsFrom)
		if err != nil {
			return fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", labelsFrom)
		}
		ref = parsed
	}

	if labelsColorMode != config.ColorModeGradient && labelsColorMode != config.ColorModeRandom {
		return fmt.Errorf("invalid --color-mode %q: must be %s or %s", labelsColorMode, config.ColorModeGradient, config.ColorModeRandom)
	}

	rollover, err := weeks.ParseRollover(labelsRollover)
	if err != nil {
		return err
	}

	n := weeks.DefaultWeeksAhead
	if labelsWeeks != "" {
		n = parseWeeks(labelsWeeks, logger)
	}

	window := weeks.Generate(ref, n, weeks.WithColorFunc(colorFunc(labelsColorMode)), weeks.WithRollover(rollover))

	out := cmd.OutOrStdout()
	switch outputFormat {
	case outputJSON:
		return writeJSON(out, window)
	case outputYAML:
		return writeYAML(out, window)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Color", "Description"})
	table.SetAutoWrapText(false)
	for _, w := range window {
		table.Append([]string{w.Name, "#" + w.Color, w.Description})
	}
	table.Render()
	return nil
}
