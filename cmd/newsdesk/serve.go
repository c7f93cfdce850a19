package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsdesk/internal/httpapi"
	"newsdesk/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.EnsureSchema(ctx); err != nil {
			return err
		}

		server := httpapi.NewServer(":"+a.cfg.HTTPPort, httpapi.Dependencies{
			Pipeline: a.processor,
			Prompts:  a.prompts,
			Searcher: a.searcher,
			Health:   a.db,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		logging.Infof("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("server forced to shutdown: %v", err)
		}
		logging.Infof("server exited")
		return nil
	},
}
