package commands

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/docmeta/internal/cli/config"
)

func TestInit_Defaults(t *testing.T) {
	dir := t.TempDir()

	out, _, err := executeCommand(context.Background(), "init", "--yes", dir)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Created "+filepath.Join(dir, "docmeta.yml")) {
		t.Errorf("unexpected output:\n%s", out)
	}

	cfg, err := config.LoadFile(filepath.Join(dir, "docmeta.yml"))
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	defaults := config.Default()
	if cfg.SourceDir != defaults.SourceDir || cfg.GuidesRoot != defaults.GuidesRoot {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := executeCommand(context.Background(), "init", "--yes", dir); err != nil {
		t.Fatal(err)
	}

	_, _, err := executeCommand(context.Background(), "init", "--yes", dir)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected an overwrite error, got %v", err)
	}

	if _, _, err := executeCommand(context.Background(), "init", "--yes", "--force", dir); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}
