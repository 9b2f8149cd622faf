package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casekb/internal/adapters/driving/api"
	"github.com/custodia-labs/casekb/internal/config"
	"github.com/custodia-labs/casekb/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing ingestion, retrieval and analysis
endpoints plus /healthz and /metrics.

Examples:
  casekb serve
  casekb serve --addr :9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", config.DefaultListenAddr, "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || queryService == nil {
		return errors.New("services not configured")
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}

	router := api.NewRouter(ingestService, queryService, analysisService, appMetrics)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("http server listening on %s", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "API server listening on %s\n", addr)

	err = httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
