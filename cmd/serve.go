package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArthurBrioche/Agent-tracing/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve trace reconstruction over HTTP",
	Long: `Start the HTTP API.

Endpoints:
  GET  /health                  liveness
  POST /v1/reconstruct          JSONL body -> reconstruction as JSON
  POST /v1/reconstruct/mermaid  JSONL body -> Mermaid flowchart

Examples:
  agent-trace serve
  agent-trace serve --addr :9090
  curl --data-binary @run.jsonl localhost:8080/v1/reconstruct`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().String("body-limit", "", "Maximum request body size, e.g. 32M")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := engineOptions()
	if err != nil {
		return err
	}
	log := GetLogger()
	addr := stringFlag(cmd, "addr", cfg.Server.Addr)

	srv := server.New(server.Options{
		BodyLimit: stringFlag(cmd, "body-limit", cfg.Server.BodyLimit),
		Version:   Version,
		Logger:    *log,
		Engine:    opts,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
