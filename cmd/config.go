package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArthurBrioche/Agent-tracing/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the agent-trace configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with the built-in defaults.

Examples:
  # Create $HOME/.agent-trace.toml
  agent-trace config init

  # Create a project-local file
  agent-trace config init --path ./agent-trace.toml

  # Overwrite an existing file
  agent-trace config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after the file, AGENT_TRACE_ environment variables and flags are applied.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := config.NewGenerator(false).Render(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	},
}

var (
	configInitPath  string
	configInitForce bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Where to write the file (default is $HOME/"+config.FileName+")")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := config.NewGenerator(configInitForce).Write(path, config.Default()); err != nil {
		return err
	}

	color.Green("✓ Wrote %s", path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit it to change the defaults, or override any key with AGENT_TRACE_<SECTION>_<KEY>.")
	return nil
}
