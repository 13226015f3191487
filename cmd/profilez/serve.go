package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/zoobzio/profilez/store"
	"github.com/zoobzio/profilez/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trace receiver",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (overrides config)")
	serveCmd.Flags().String("db", "", "SQLite database path (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Server.Listen = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Server.DBPath = v
	}

	traces, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return errors.Trace(err)
	}
	defer traces.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           transport.NewServer(traces, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("receiver listening",
			zap.String("addr", cfg.Server.Listen),
			zap.String("db", cfg.Server.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Annotate(err, "serving")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("receiver shutting down")
		return errors.Annotate(srv.Shutdown(shutdownCtx), "shutting down")
	})
	return g.Wait()
}
