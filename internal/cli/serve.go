package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graftwood/internal/server"
	"github.com/matzehuels/graftwood/pkg/observability/prom"
)

// serveOpts holds options for the serve command.
type serveOpts struct {
	addr        string
	maxSessions int
}

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tree sessions over HTTP",
		Long: `Serve tree sessions over HTTP.

  POST   /trees                           {"source": "shop.db", "expand": 1}
  GET    /trees/{id}?format=json|outline|dot
  POST   /trees/{id}/nodes/{node}/expand
  DELETE /trees/{id}
  GET    /metrics

Every session has its own provider registry, so backend connections and
recursion guards are never shared between sessions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd.Flags().Changed("addr"), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address (default from [server] addr)")
	cmd.Flags().IntVar(&opts.maxSessions, "max-sessions", 64, "maximum number of open tree sessions (0: unlimited)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addrSet bool, opts serveOpts) error {
	ws, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	addr := opts.addr
	if !addrSet && ws.cfg.Server.Addr != "" {
		addr = ws.cfg.Server.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom.New(reg).Register()

	srv := server.New(server.Config{
		NewRegistry: ws.newRegistry,
		Logger:      c.Logger,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MaxSessions: opts.maxSessions,
	})

	printInfo("Listening on %s", StyleHighlight.Render(addr))
	printDetail("Press Ctrl+C to stop")
	err = srv.ListenAndServe(ctx, addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
