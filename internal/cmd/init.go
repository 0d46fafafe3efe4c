package cmd

import (
	"fmt"
	"os"

	"weeklabel/pkg/config"

	"github.com/spf13/cobra"
)

var (
	initPath  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize weeklabel configuration",
	Long:  "Create a sample configuration file for weeklabel",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initPath, "path", "p", config.DefaultConfigPath, "Where to write the configuration file")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file without asking")
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(initPath); err == nil && !initForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists at: %s\n", initPath)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response) // Ignore error for user input
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	sample := config.Default()
	sample.GitHubToken = "ghp_your_token_here"
	sample.OrgName = "your-org"

	if err := sample.SaveConfigToPath(initPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created at: %s\n", initPath)
	fmt.Fprintln(out, "📝 Please edit the file to set github_token and either org_name or repo.")

	return nil
}
