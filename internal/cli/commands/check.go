package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/cli/ui"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

var checkJSON bool

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Compile documents without writing any output",
		Long: `Compile the given documents and list the units each one produces.
Nothing is written to the output directory or the configured stores.

With --json the artifacts are printed to stdout instead of the unit table.`,
		Example: `  docmeta check docs/api/array.md
  docmeta check --json docs/guides/*.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}

	cmd.Flags().BoolVar(&checkJSON, "json", false, "Print artifacts as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	// The driver still validates units, so values no output could
	// represent are reported here too.
	driver := emit.NewDriver(logger)
	if checkJSON {
		driver.Add(emit.NewStreamWriter(out))
	}

	builder, err := build.New(cfg.BuildOptions(), driver, logger)
	if err != nil {
		return err
	}
	defer builder.Close()

	report, err := builder.BuildFiles(cmd.Context(), args)
	if err != nil {
		return err
	}

	if !checkJSON {
		for i, doc := range report.Documents {
			if doc.Failed() {
				continue
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			ui.Header(out, doc.Path, noColor)
			units := make([]metadata.Entry, 0, len(doc.Units))
			for _, u := range doc.Units {
				units = append(units, emit.Encode(u))
			}
			ui.UnitTable(out, units, noColor)
		}
	}

	if !report.Success() {
		fmt.Fprint(errOut, ui.FormatDiagnostics(report.Errors, noColor))
		return fmt.Errorf("check failed: %d of %d documents have errors", failedDocuments(report), len(report.Documents))
	}
	return nil
}
