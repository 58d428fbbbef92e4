package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/consult"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the consult proxy HTTP server",
		Long:  "Serve POST /api/consult (and /.netlify/functions/consult) forwarding health questions to the configured chat-completion provider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			handler := consult.NewHandler(a.cfg, a.log)
			srv := consult.NewServer(a.cfg.Server, consult.NewRouter(handler, a.log))

			a.log.Info("starting consult proxy",
				zap.String("provider", a.cfg.Provider),
				zap.String("model", a.cfg.Model.Name))

			return consult.Serve(ctx, srv, time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second, a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// commandContext returns a context cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
