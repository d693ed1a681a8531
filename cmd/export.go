package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArthurBrioche/Agent-tracing/internal/audit"
	"github.com/ArthurBrioche/Agent-tracing/internal/render"
	"github.com/ArthurBrioche/Agent-tracing/internal/telemetry"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// exportFormats lists the accepted --format values.
var exportFormats = []string{"json", "mermaid", "template", "otlp"}

// exportCmd writes a reconstruction in another format
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a trace for external tools",
	Long: `Export the reconstructed trace.

Formats:
  json       the full reconstruction (traces, span forest, diagnostics)
  mermaid    a Mermaid flowchart
  template   a Go text/template executed once per span (sprig functions available)
  otlp       replay the spans to an OpenTelemetry collector

Examples:
  agent-trace export run.jsonl --format json --output run.json
  agent-trace export run.jsonl --format mermaid
  agent-trace export run.jsonl --format template --template '{{ repeat .Depth "  " }}{{ name .Span }} {{ duration .Span.Duration }}{{ "\n" }}'
  agent-trace export run.jsonl --format template --template @span.tmpl
  agent-trace export run.jsonl --format otlp --endpoint localhost:4317`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat   string
	exportOutput   string
	exportTemplate string
	exportTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: "+strings.Join(exportFormats, ", "))
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportTemplate, "template", "t", "", "Template text, or @file to read it from a file")
	exportCmd.Flags().String("endpoint", "", "OTLP collector endpoint (host:port)")
	exportCmd.Flags().String("exporter", "", "OTLP exporter: otlp, otlp-http or stdout")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "OTLP export timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "json", "mermaid", "template", "otlp":
	default:
		return utils.NewUserError(
			fmt.Sprintf("Unknown export format: %s", exportFormat),
			"Use one of: "+strings.Join(exportFormats, ", "),
			nil,
		)
	}
	if exportFormat == "template" && exportTemplate == "" {
		return utils.NewUserError("Missing template", "Pass --template with template text or @file", nil)
	}

	res, err := loadResult(args[0])
	if err != nil {
		return err
	}

	if exportFormat == "otlp" {
		return exportOTLP(cmd, res)
	}

	var buf bytes.Buffer
	switch exportFormat {
	case "json":
		err = writeJSON(&buf, res)
	case "mermaid":
		_, err = buf.WriteString(audit.GenerateMermaid(res) + "\n")
	case "template":
		var text string
		text, err = templateText(exportTemplate)
		if err == nil {
			err = render.Template(&buf, res, text)
		}
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := utils.WriteFile(exportOutput, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	color.Green("✓ Exported %d spans to %s", res.SpanCount(), exportOutput)
	return nil
}

func writeJSON(w io.Writer, res *tracetree.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// templateText resolves --template: "@path" reads the file.
func templateText(value string) (string, error) {
	if !strings.HasPrefix(value, "@") {
		return value, nil
	}
	path := strings.TrimPrefix(value, "@")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", utils.NewUserError(
			fmt.Sprintf("Cannot read template %s", path),
			"Check the path given after @",
			err,
		)
	}
	return string(data), nil
}

func exportOTLP(cmd *cobra.Command, res *tracetree.Result) error {
	tcfg := telemetry.Config{
		Exporter:       stringFlag(cmd, "exporter", cfg.OTLP.Exporter),
		Endpoint:       stringFlag(cmd, "endpoint", cfg.OTLP.Endpoint),
		Insecure:       cfg.OTLP.Insecure,
		ServiceName:    cfg.OTLP.ServiceName,
		ServiceVersion: Version,
		Writer:         cmd.OutOrStdout(),
	}
	if exportOutput != "" && tcfg.Exporter == telemetry.ExporterStdout {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		tcfg.Writer = f
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	tp, err := telemetry.NewExporterProvider(ctx, tcfg)
	if err != nil {
		return err
	}

	n, err := telemetry.Replay(ctx, tp.Tracer("agent-trace"), res)
	if shutdownErr := tp.Shutdown(ctx); err == nil && shutdownErr != nil {
		err = fmt.Errorf("failed to flush spans: %w", shutdownErr)
	}
	if err != nil {
		return utils.NewUserError(
			fmt.Sprintf("OTLP export to %s failed", tcfg.Endpoint),
			"Check that a collector is listening on the endpoint, or use --exporter stdout",
			err,
		)
	}

	GetLogger().Debug().Int("spans", n).Str("exporter", tcfg.Exporter).Msg("replayed spans")
	if tcfg.Exporter != telemetry.ExporterStdout {
		color.Green("✓ Exported %d spans to %s", n, tcfg.Endpoint)
	}
	return nil
}
