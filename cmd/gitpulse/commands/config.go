package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gitpulse/gitpulse/internal/config"
)

// ConfigCommand holds the configuration for the config command.
type ConfigCommand struct {
	configPath string
}

// NewConfigCommand creates the config command with its subcommands.
func NewConfigCommand() *cobra.Command {
	cc := &ConfigCommand{}

	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration values",
	}

	cobraCmd.PersistentFlags().StringVarP(&cc.configPath, "config", "c", DefaultConfigPath, "Path to the configuration file")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value by dot path",
		Long: `Get prints the value at a dot-separated key path, e.g.
elasticsearch.host or exclusions.patterns. Scalars print raw for shell
consumption; maps and lists print as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: cc.runGet,
	}

	cobraCmd.AddCommand(getCmd)

	return cobraCmd
}

func (cc *ConfigCommand) runGet(_ *cobra.Command, args []string) error {
	value, err := config.Lookup(cc.configPath, args[0])
	if err != nil {
		return err
	}

	switch value.(type) {
	case string, bool, int, int64, uint64, float64, nil:
		fmt.Fprintln(os.Stdout, value)

		return nil
	}

	encoded, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", args[0], err)
	}

	fmt.Fprint(os.Stdout, string(encoded))

	return nil
}
