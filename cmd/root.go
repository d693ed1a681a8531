package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ArthurBrioche/Agent-tracing/internal/config"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

var (
	cfgFile string
	verbose bool
	debug   bool

	logger *zerolog.Logger
	cfg    = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agent-trace",
	Short: "Reconstruct and explore agent execution traces",
	Long: `agent-trace rebuilds the execution tree of an agent run from its flat
JSONL event log (trace_start, span_start, span_end, trace_end).

Features:
- Interactive terminal viewer with live reload
- Tree and timeline printing
- Span inspection and run statistics
- Exports to JSON, Mermaid, Go templates and OpenTelemetry
- YAML assertion suites for CI
- HTTP API

Every command that reads a log accepts - for stdin.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug mode")
	rootCmd.PersistentFlags().String("duplicate-spans", "", "duplicate span_start handling: replace or keep-first")

	_ = viper.BindPFlag("engine.duplicate_spans", rootCmd.PersistentFlags().Lookup("duplicate-spans"))
}

// initConfig wires environment variables over the built-in defaults.
func initConfig() {
	config.SetDefaults(viper.GetViper(), config.Default())
	viper.SetEnvPrefix("AGENT_TRACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setup resolves the configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	resolved, err := config.FromViper(viper.GetViper())
	if err != nil {
		return utils.NewUserError("Invalid configuration", "Fix the value in your config file, environment or flags", err)
	}
	cfg = resolved

	l, err := utils.NewLogger(debug, cfg.Logging.Format)
	if err != nil {
		return err
	}
	if !debug {
		level, err := utils.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		if verbose && level > zerolog.DebugLevel {
			level = zerolog.DebugLevel
		}
		nl := l.Level(level)
		l = &nl
	}
	logger = l
	logger.Debug().Str("config", viper.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

// loadConfigFile validates the config file strictly and installs its values
// as viper defaults, below env and flags.
func loadConfigFile() error {
	path := cfgFile
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil || !utils.FileExists(p) {
			return nil
		}
		path = p
	}

	fileCfg, err := config.Load(path)
	if err != nil {
		return utils.NewUserError(
			fmt.Sprintf("Failed to load config %s", path),
			"Run 'agent-trace config init --force' to regenerate it",
			err,
		)
	}
	config.SetDefaults(viper.GetViper(), fileCfg)
	viper.SetConfigFile(path)
	return nil
}

// GetLogger returns the configured logger instance
func GetLogger() *zerolog.Logger {
	if logger == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger = &l
	}
	return logger
}

// engineOptions translates the configuration into reconstruction options.
func engineOptions() ([]tracetree.Option, error) {
	policy, err := tracetree.ParseDuplicatePolicy(cfg.Engine.DuplicateSpans)
	if err != nil {
		return nil, err
	}
	return []tracetree.Option{
		tracetree.WithLogger(*GetLogger()),
		tracetree.WithDuplicatePolicy(policy),
	}, nil
}

// loadResult reconstructs the log at path ("-" for stdin).
func loadResult(path string) (*tracetree.Result, error) {
	log := GetLogger()
	if path != utils.StdinPath && !utils.IsJSONLFile(path) {
		log.Warn().Str("path", path).Msg("file does not have a JSONL extension, reading it anyway")
	}

	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}

	in, err := utils.OpenInput(path)
	if err != nil {
		return nil, utils.ExplainInputError(path, err)
	}
	defer in.Close()

	res, err := tracetree.ReconstructReader(in, opts...)
	if err != nil {
		return nil, utils.ExplainInputError(utils.InputName(path), err)
	}

	d := res.Diagnostics
	if n := len(d.SkippedLines); n > 0 {
		log.Warn().Int("skipped", n).Int("lines", d.Lines).Msg("skipped malformed lines")
	}
	log.Debug().
		Str("source", utils.InputName(path)).
		Int("records", d.Records).
		Int("spans", res.SpanCount()).
		Int("traces", len(res.Traces)).
		Msg("reconstructed")
	return res, nil
}

// stringFlag is the flag value when set on the command line, else fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return fallback
	}
	return f.Value.String()
}
