package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves the chat API with server-sent event streams, the OpenAPI document and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.HTTP.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if n, err := app.Restore(ctx); err != nil {
			app.Logger.Warn("could not restore sessions", "err", err)
		} else if n > 0 {
			app.Logger.Info("restored sessions", "count", n)
		}

		handler, err := app.Handler()
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              app.Config.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("starting server", "addr", srv.Addr, "llm", app.Config.LLM.Server, "storage", app.Config.Storage.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				_ = app.Close(context.Background())
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			app.Logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("graceful shutdown did not complete", "err", err)
			_ = srv.Close()
		}
		if err := app.Close(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		app.Logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8000)")
}
