package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/cli/ui"
	"github.com/conduit-lang/docmeta/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild documents when they change",
		Long: `Run a full build, then watch the source directory and rebuild the
documents that change. Deleted documents have their artifacts and stored
units removed.

Stop with Ctrl+C.`,
		Example: `  docmeta watch
  docmeta watch --debounce 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, debounce time.Duration) error {
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

	p, err := openPipeline(ctx, cfg, logger, pipelineOptions{OutputDir: cfg.OutputDir})
	if err != nil {
		return err
	}
	defer p.Close()

	session, err := watch.NewSession(p.builder, watch.SessionOptions{
		OnRemove: removeDocument(ctx, p, logger),
		OnBuild:  func(r *build.Report) { reportBuild(out, errOut, r) },
		Debounce: debounce,
	}, logger)
	if err != nil {
		return err
	}

	if _, err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	infoColor := color.New(color.FgCyan)
	if noColor {
		infoColor.DisableColor()
	}
	infoColor.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", cfg.SourceDir)

	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping watcher...")
	return nil
}

func removeDocument(ctx context.Context, p *pipeline, logger *zap.Logger) func(string) {
	return func(document string) {
		if err := p.remove(ctx, document); err != nil {
			logger.Warn("failed to remove document output",
				zap.String("file", document),
				zap.Error(err))
		}
	}
}

// reportBuild prints the outcome of one watch or serve build
func reportBuild(out, errOut io.Writer, report *build.Report) {
	if !report.Success() {
		fmt.Fprint(errOut, ui.FormatDiagnostics(report.Errors, noColor))
		return
	}
	ui.WriteSuccess(out, fmt.Sprintf("[%s] Built %d units from %d documents in %s",
		time.Now().Format("15:04:05"),
		report.Units, len(report.Documents), report.Duration.Round(time.Millisecond)), noColor)
}
