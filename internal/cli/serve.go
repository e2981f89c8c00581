package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sitrep/internal/logging"
	"github.com/ppiankov/sitrep/internal/server"
	"github.com/ppiankov/sitrep/internal/store"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Sitrep HTTP API",
	Long: `Start the HTTP API for transcript ingestion and incident state queries.

Endpoints:
  POST /chunk                   ingest a transcript chunk
  GET  /incidents               list incident ids (add ?summaries=true for states)
  GET  /incident/:id            current fused state for one incident
  GET  /incident/:id/timeline   claim timeline for one incident
  GET  /healthz                 liveness probe

Without OPENAI_API_KEY the service still runs: LLM extraction, support
scoring and clustering signals degrade to their regex and neutral
fallbacks.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	log := logging.New(cfg.LogLevel)

	st := store.New()
	p := buildPipeline(st, cfg, log)

	h := server.NewHandler(p, st, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
