package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports as a web page",
	Long: `serve starts the web viewer, then runs the pipeline once in the
background. Views show a pending state until their data arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		board := web.NewBoard()
		pipeline, store, cleanup, err := buildPipeline(ctx, board)
		if err != nil {
			return err
		}
		defer cleanup()

		var opts []web.ServerOption
		if store != nil {
			opts = append(opts, web.WithHistory(store))
		}
		server := web.NewServer(board, cfg, opts...)

		ln, err := net.Listen("tcp", cfg.Server.Addr())
		if err != nil {
			return err
		}

		// The run must finish before cleanup closes the history pool.
		runDone := runInBackground(ctx, pipeline, board, cfg.Pipeline.ConfigPath)
		defer func() {
			stop()
			<-runDone
		}()

		go func() {
			<-ctx.Done()
			slog.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
		}()

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("server stopped")
		return nil
	},
}

// runInBackground runs the pipeline once and publishes its report to the
// board. The returned channel is closed after the report is published.
func runInBackground(ctx context.Context, pipeline *core.Pipeline, board *web.Board, configPath string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		board.SetReport(pipeline.Run(ctx, configPath))
	}()
	return done
}
