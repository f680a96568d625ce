package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/tandem/server"
)

func newServeCommand() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves the chat API. Generations stream as server-sent events.

Example:
  tandem serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if addr == "" {
				addr = cfg.Addr()
			}
			srv := server.New(a.chats, a.scenarios, a.credentials)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to TANDEM_HOST:TANDEM_PORT)")
	return serveCmd
}
