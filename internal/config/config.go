// Package config holds the agent-trace configuration file model.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// FileName is the default config file name in the home directory.
const FileName = ".agent-trace.toml"

// Config is the full configuration file.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	View    ViewConfig    `toml:"view"`
	Server  ServerConfig  `toml:"server"`
	OTLP    OTLPConfig    `toml:"otlp"`
	Logging LoggingConfig `toml:"logging"`
}

// EngineConfig tunes reconstruction.
type EngineConfig struct {
	DuplicateSpans string `toml:"duplicate_spans"`
}

// ViewConfig tunes the terminal viewer and tree printer.
type ViewConfig struct {
	Mode          string `toml:"mode"`
	WatchInterval string `toml:"watch_interval"`
}

// ServerConfig tunes the HTTP API.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	BodyLimit string `toml:"body_limit"`
}

// OTLPConfig selects where replayed spans are exported.
type OTLPConfig struct {
	Exporter    string `toml:"exporter"`
	Endpoint    string `toml:"endpoint"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{DuplicateSpans: string(tracetree.DuplicateReplace)},
		View:   ViewConfig{Mode: "tree", WatchInterval: "500ms"},
		Server: ServerConfig{Addr: ":8080", BodyLimit: "32M"},
		OTLP: OTLPConfig{
			Exporter:    "otlp",
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "agent-trace",
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// DefaultPath is $HOME/.agent-trace.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads a TOML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, utils.NewValidationError(path, "unknown keys: "+strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	if _, err := tracetree.ParseDuplicatePolicy(c.Engine.DuplicateSpans); err != nil {
		return utils.NewValidationError("engine.duplicate_spans", err.Error())
	}
	switch c.View.Mode {
	case "", "tree", "timeline":
	default:
		return utils.NewValidationError("view.mode", fmt.Sprintf("must be tree or timeline, got %q", c.View.Mode))
	}
	if _, err := c.View.Interval(); err != nil {
		return utils.NewValidationError("view.watch_interval", err.Error())
	}
	switch c.OTLP.Exporter {
	case "", "otlp", "otlp-http", "stdout":
	default:
		return utils.NewValidationError("otlp.exporter", fmt.Sprintf("must be otlp, otlp-http or stdout, got %q", c.OTLP.Exporter))
	}
	switch c.Logging.Format {
	case "", "auto", "console", "text", "json":
	default:
		return utils.NewValidationError("logging.format", fmt.Sprintf("must be auto, console or json, got %q", c.Logging.Format))
	}
	if _, err := utils.ParseLevel(c.Logging.Level); err != nil {
		return utils.NewValidationError("logging.level", err.Error())
	}
	return nil
}

// Interval parses the watch interval. Empty means 500ms.
func (v ViewConfig) Interval() (time.Duration, error) {
	if v.WatchInterval == "" {
		return 500 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v.WatchInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v.WatchInterval)
	}
	return d, nil
}

// viperKeys maps viper keys to config fields.
func (c *Config) viperKeys() map[string]any {
	return map[string]any{
		"engine.duplicate_spans": &c.Engine.DuplicateSpans,
		"view.mode":              &c.View.Mode,
		"view.watch_interval":    &c.View.WatchInterval,
		"server.addr":            &c.Server.Addr,
		"server.body_limit":      &c.Server.BodyLimit,
		"otlp.exporter":          &c.OTLP.Exporter,
		"otlp.endpoint":          &c.OTLP.Endpoint,
		"otlp.insecure":          &c.OTLP.Insecure,
		"otlp.service_name":      &c.OTLP.ServiceName,
		"logging.level":          &c.Logging.Level,
		"logging.format":         &c.Logging.Format,
	}
}

// SetDefaults registers every value of c as a viper default, so that a
// config file, environment variables and bound flags override it.
func SetDefaults(v *viper.Viper, c Config) {
	for key, ptr := range c.viperKeys() {
		switch p := ptr.(type) {
		case *string:
			v.SetDefault(key, *p)
		case *bool:
			v.SetDefault(key, *p)
		}
	}
}

// FromViper resolves the effective configuration.
func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	for key, ptr := range c.viperKeys() {
		switch p := ptr.(type) {
		case *string:
			*p = v.GetString(key)
		case *bool:
			*p = v.GetBool(key)
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
