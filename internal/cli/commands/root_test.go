package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const symbolDoc = `@annotate: Array.prototype.map
since: 1
---
Creates a new array.
`

const brokenDoc = `Stray prose before any directive.
@annotate: Array
`

// syncBuffer is written by a running command while the test reads it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// setupProject creates a project with a docs directory and a config file
// and returns the project root and the config path
func setupProject(t *testing.T, docs map[string]string, extraConfig string) (string, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range docs {
		path := filepath.Join(root, "docs", filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := "source_dir: " + filepath.Join(root, "docs") + "\n" +
		"output_dir: " + filepath.Join(root, "out") + "\n" +
		"workers: 2\n" +
		"log:\n  level: error\n  format: dev\n" +
		extraConfig
	cfgPath := filepath.Join(root, "docmeta.yml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, cfgPath
}

func executeCommand(ctx context.Context, args ...string) (string, string, error) {
	var out, errOut syncBuffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "docmeta" {
		t.Errorf("expected Use to be 'docmeta', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected descriptions to be set")
	}

	for _, expected := range []string{"version", "build", "check", "watch", "serve", "init"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}

	for _, flag := range []string{"config", "log-level", "no-color"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected --%s flag to be registered", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() { Version, GitCommit = "dev", "unknown" }()

	out, _, err := executeCommand(context.Background(), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	for _, want := range []string{"docmeta version: 1.0.0-test", "Git commit: abc123", "Go version: "} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLogLevelOverride(t *testing.T) {
	_, cfgPath := setupProject(t, nil, "")

	_, errOut, err := executeCommand(context.Background(), "--config", cfgPath, "--log-level", "loud", "build")
	if err == nil {
		t.Fatal("expected an invalid --log-level to fail")
	}
	if !strings.Contains(errOut, "CONFIGURATION ERROR") {
		t.Errorf("expected a configuration error, got:\n%s", errOut)
	}
}
