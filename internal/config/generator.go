package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
)

const header = `# agent-trace configuration
#
# Every key can be overridden with an AGENT_TRACE_ environment variable,
# e.g. AGENT_TRACE_SERVER_ADDR=:9090, or with the matching command flag.
#
# engine.duplicate_spans: "replace" (last start wins) or "keep-first"
# view.mode:              "tree" or "timeline"
# otlp.exporter:          "otlp" (gRPC), "otlp-http" or "stdout"
# logging.format:         "auto", "console" or "json"

`

// Generator writes configuration files
type Generator struct {
	// Force overwrites an existing file.
	Force bool
}

// NewGenerator creates a new config generator
func NewGenerator(force bool) *Generator {
	return &Generator{Force: force}
}

// Write renders cfg as TOML to path.
func (g *Generator) Write(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !g.Force && utils.FileExists(path) {
		return utils.NewUserError(
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite it",
			nil,
		)
	}

	content, err := g.Render(cfg)
	if err != nil {
		return err
	}
	if err := utils.WriteFile(path, content); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Render returns the file content for cfg.
func (g *Generator) Render(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
