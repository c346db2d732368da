package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitpulse/gitpulse/internal/config"
	"github.com/gitpulse/gitpulse/internal/emails"
	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
	"github.com/gitpulse/gitpulse/internal/observability"
)

// EmailsCommand holds the configuration for the emails command.
type EmailsCommand struct {
	configPath string
	logJSON    bool
}

// NewEmailsCommand creates and configures the emails command.
func NewEmailsCommand() *cobra.Command {
	ec := &EmailsCommand{}

	cobraCmd := &cobra.Command{
		Use:   "emails",
		Short: "Find author emails missing from the identity mapping",
		Long: `Emails scans every configured repository's full author history and lists
the addresses that no email_mapping entry covers, so the mapping can be
extended before the next analysis run.`,
		RunE: ec.run,
	}

	cobraCmd.Flags().StringVarP(&ec.configPath, "config", "c", DefaultConfigPath, "Path to the configuration file")
	cobraCmd.Flags().BoolVar(&ec.logJSON, "log-json", false, "Emit logs as JSON")

	return cobraCmd
}

func (ec *EmailsCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(ec.configPath)
	if err != nil {
		return err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.LogJSON = ec.logJSON

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	repoPaths, err := gitexec.DiscoverRepositories(cfg.Repositories.BaseDirectory, cfg.Repositories.ReposToAnalyze)
	if err != nil {
		return err
	}

	resolver := identity.NewResolver(cfg.EmailMapping)
	finder := emails.NewFinder(gitexec.NewRunner(), resolver, providers.Logger)

	unmapped := finder.Find(cmd.Context(), repoPaths)
	if len(unmapped) == 0 {
		color.New(color.FgGreen).Fprintf(os.Stdout, "All author emails are mapped (%d mapping entries)\n", resolver.Len())

		return nil
	}

	color.New(color.FgYellow).Fprintf(os.Stdout, "%d unmapped author emails:\n", len(unmapped))

	for _, entry := range unmapped {
		fmt.Fprintf(os.Stdout, "  %s", entry.Email)

		for _, repo := range entry.Repositories {
			fmt.Fprintf(os.Stdout, " %s", repo)
		}

		fmt.Fprintln(os.Stdout)
	}

	return nil
}
