package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/tandem/mcp"
	"github.com/sweetpotato0/tandem/pkg/logging"
)

func newMCPCommand() *cobra.Command {
	var (
		httpAddr string
		path     string
	)

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server",
		Long: `Exposes tutor_generate and scenario_brainstorm over MCP.

Without --http the server speaks over stdin and stdout:
  tandem mcp
  tandem mcp --http 127.0.0.1:8081 --path /mcp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			srv := mcp.NewServer(a.tutor, a.scenarios, version)
			if httpAddr == "" {
				return srv.RunStdio(ctx)
			}

			mux := http.NewServeMux()
			mux.Handle(path, srv.HTTPHandler())
			httpSrv := &http.Server{Addr: httpAddr, Handler: mux}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpSrv.Shutdown(shutdownCtx)
			}()

			logging.WithComponent("mcp").Info("serving MCP", "addr", httpAddr, "path", path)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	mcpCmd.Flags().StringVar(&httpAddr, "http", "", "serve the streamable HTTP transport on this address instead of stdio")
	mcpCmd.Flags().StringVar(&path, "path", "/mcp", "HTTP path of the MCP endpoint")
	return mcpCmd
}
