package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/cli/ui"
)

var (
	buildJSON    bool
	buildVerbose bool
	buildOutput  string
	buildStdout  bool
)

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every document under the source directory",
		Long: `Discover the documents matched by the configured include and exclude
patterns, compile them in parallel and emit their units.

Each document produces one JSON artifact under the output directory. When a
SQL store or Redis is configured the units are written there as well. A
document with any error emits nothing; the other documents are unaffected.`,
		Example: `  # Build with default settings
  docmeta build

  # Show a build summary
  docmeta build --verbose

  # Report errors as JSON (useful for tooling)
  docmeta build --json

  # Write artifacts to a custom directory
  docmeta build -o dist/metadata

  # Print artifacts instead of writing files
  docmeta build --stdout`,
		RunE: runBuild,
	}

	cmd.Flags().BoolVar(&buildJSON, "json", false, "Output errors in JSON format")
	cmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Show a build summary")
	cmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Artifact directory (default: output_dir from config)")
	cmd.Flags().BoolVar(&buildStdout, "stdout", false, "Write artifacts to stdout as a JSON stream")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	outputDir := cfg.OutputDir
	if buildOutput != "" {
		outputDir = buildOutput
	}

	opts := pipelineOptions{OutputDir: outputDir}
	if buildStdout {
		opts.Stream = out
	}

	var bar *ui.ProgressBar
	if !buildJSON && !buildStdout {
		opts.Progress = func(done, total int) {
			if bar == nil {
				bar = ui.NewProgressBar(errOut, ui.ProgressBarOptions{Total: total, Message: "documents", NoColor: noColor})
			}
			bar.Set(done)
		}
	}

	p, err := openPipeline(cmd.Context(), cfg, logger, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.builder.Build(cmd.Context())
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	// JSON errors share stdout only when it is not carrying artifacts
	reportOut := out
	if buildStdout {
		reportOut = errOut
	}

	if len(report.Documents) == 0 {
		fmt.Fprint(errOut, ui.Warning(fmt.Sprintf("No documents matched in %s", cfg.SourceDir), noColor))
		return nil
	}

	if buildJSON {
		data, err := report.Errors.FormatAsJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(reportOut, data)
	} else if buildVerbose {
		writeBuildSummary(reportOut, report, outputDir)
	}

	if !report.Success() {
		if !buildJSON {
			fmt.Fprint(errOut, ui.FormatDiagnostics(report.Errors, noColor))
			fmt.Fprint(errOut, ui.BuildError(failedDocuments(report), noColor))
		}
		return fmt.Errorf("build failed")
	}

	if !buildJSON && !buildStdout {
		ui.WriteSuccess(out, fmt.Sprintf("Built %d units from %d documents in %s",
			report.Units, len(report.Documents), report.Duration.Round(time.Millisecond)), noColor)
	}
	return nil
}

func writeBuildSummary(w io.Writer, report *build.Report, outputDir string) {
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Run", report.RunID)
	kv.AddRow("Documents", fmt.Sprint(len(report.Documents)))
	kv.AddRow("Failed", fmt.Sprint(failedDocuments(report)))
	kv.AddRow("Units", fmt.Sprint(report.Units))
	kv.AddRow("Cache hits", fmt.Sprint(report.CacheHits))
	kv.AddRow("Duration", report.Duration.Round(time.Millisecond).String())
	if !buildStdout {
		kv.AddRow("Output", outputDir)
	}
	kv.Render()
}

func failedDocuments(report *build.Report) int {
	n := 0
	for _, doc := range report.Documents {
		if doc.Failed() {
			n++
		}
	}
	return n
}
