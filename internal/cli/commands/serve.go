package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/cli/ui"
	"github.com/conduit-lang/docmeta/internal/watch"
	"github.com/conduit-lang/docmeta/internal/web"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

const shutdownTimeout = 5 * time.Second

var (
	serveWatch bool
	serveAddr  string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiled metadata over HTTP",
		Long: `Build every document into an in-memory registry and serve it:

  GET /api/health                      registry statistics
  GET /api/symbols                     symbols (?pattern=&stability=&document=)
  GET /api/symbols/{ref}               one symbol
  GET /api/symbols/{ref}/dependencies  deferred references (?depth=&reverse=)
  GET /api/guides                      guides
  GET /api/guides/{parent}             guides under a parent
  GET /ws                              build events (building, success, error)

With --watch, changed documents are rebuilt and the events are broadcast to
websocket clients.`,
		Example: `  docmeta serve
  docmeta serve --watch --addr localhost:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd)
		},
	}

	cmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Rebuild on change and broadcast build events")
	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.host:server.port from config)")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprint(errOut, ui.ConfigError(err.Error(), noColor))
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddress()
	}

	registry := metadata.NewRegistry()
	hub := watch.NewEventHub(logger)
	defer hub.Close()

	p, err := openPipeline(ctx, cfg, logger, pipelineOptions{OutputDir: cfg.OutputDir, Registry: registry})
	if err != nil {
		return err
	}
	defer p.Close()

	srv, err := web.New(web.DefaultConfig(addr), web.NewAPI(registry, hub, logger).Router())
	if err != nil {
		return err
	}

	onBuild := func(r *build.Report) { reportBuild(out, errOut, r) }
	if serveWatch {
		session, err := watch.NewSession(p.builder, watch.SessionOptions{
			Hub:      hub,
			OnRemove: removeDocument(ctx, p, logger),
			OnBuild:  onBuild,
		}, logger)
		if err != nil {
			return err
		}
		if _, err := session.Start(ctx); err != nil {
			return err
		}
		defer session.Stop()
	} else {
		report, err := p.builder.Build(ctx)
		if err != nil {
			return err
		}
		onBuild(report)
	}

	if err := srv.Listen(); err != nil {
		return err
	}

	infoColor := color.New(color.FgCyan)
	if noColor {
		infoColor.DisableColor()
	}
	infoColor.Fprintf(out, "Serving %d units at http://%s\n", registry.Len(), srv.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(out, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
