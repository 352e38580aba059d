package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/server"
)

var (
	servePort    int
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Index the dataset and serve questions over HTTP and WebSocket",
	Long: `Starts the HTTP server, ingests every document under dataset.dir and
answers questions on POST /query once the index is ready. GET /health
reports 503 until then. If ingestion fails the server exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().DurationVar(&serveTimeout, "request-timeout", server.DefaultRequestTimeout, "per-request timeout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, progress.NewReporter())
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	var hist server.HistoryReader
	if a.history != nil {
		hist = a.history
	}
	srv := server.New(server.Config{
		Port:           port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: serveTimeout,
		Name:           fmt.Sprintf("docqa %s", Version),
	}, a.orchestrator, hist, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ingestErr := make(chan error, 1)
	go func() { ingestErr <- a.ingest(ctx) }()

	for {
		select {
		case err := <-errCh:
			return err
		case err := <-ingestErr:
			if err != nil && ctx.Err() == nil {
				shutdown(srv, a.logger)
				return err
			}
			ingestErr = nil
		case <-ctx.Done():
			a.logger.Info("shutting down server")
			shutdown(srv, a.logger)
			return nil
		}
	}
}

func shutdown(srv *server.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
