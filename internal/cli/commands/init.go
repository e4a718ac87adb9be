package commands

import (
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/docmeta/internal/cli/config"
	"github.com/conduit-lang/docmeta/internal/cli/ui"
	"github.com/conduit-lang/docmeta/internal/store"
)

const noStore = "none"

var (
	initYes   bool
	initForce bool
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a docmeta.yml configuration file",
		Long: `Create docmeta.yml in the given directory (default: current directory).

You will be prompted for the source directory, the output directory, the
default guide parent and an optional store. With --yes the defaults are
written without prompting.`,
		Example: `  docmeta init
  docmeta init --yes website`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}

	cmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept all defaults without prompting")
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if config.Exists(dir) && !initForce {
		return fmt.Errorf("%s already exists in %s (use --force to overwrite)", config.FileName+".yml", dir)
	}

	cfg := config.Default()
	if !initYes {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	path := filepath.Join(dir, config.FileName+".yml")
	if err := config.Write(path, cfg); err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Created %s", path), noColor)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext: docmeta build")
	return nil
}

func promptConfig(cfg *config.Config) error {
	questions := []struct {
		message string
		help    string
		target  *string
	}{
		{"Source directory:", "Root directory searched for Markdown documents", &cfg.SourceDir},
		{"Output directory:", "Directory receiving one JSON artifact per document", &cfg.OutputDir},
		{"Default guide parent:", "Parent expression for @guide: directives without a parent field", &cfg.GuidesRoot},
	}
	for _, q := range questions {
		prompt := &survey.Input{Message: q.message, Default: *q.target, Help: q.help}
		if err := survey.AskOne(prompt, q.target, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	driver := noStore
	storePrompt := &survey.Select{
		Message: "SQL store:",
		Options: []string{noStore, store.DriverSQLite, store.DriverPostgres, store.DriverPgx},
		Default: noStore,
	}
	if err := survey.AskOne(storePrompt, &driver); err != nil {
		return err
	}
	if driver != noStore {
		cfg.Store.Driver = driver
		dsnPrompt := &survey.Input{Message: "Data source name:", Help: "e.g. metadata.db or postgres://localhost/docs"}
		if err := survey.AskOne(dsnPrompt, &cfg.Store.DSN, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	redisPrompt := &survey.Input{Message: "Redis address (empty to disable):", Help: "e.g. localhost:6379"}
	return survey.AskOne(redisPrompt, &cfg.Redis.Addr)
}
