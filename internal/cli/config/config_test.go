package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.SourceDir != "docs" {
		t.Errorf("expected default source_dir 'docs', got %s", cfg.SourceDir)
	}
	if cfg.OutputDir != "build/metadata" {
		t.Errorf("expected default output_dir 'build/metadata', got %s", cfg.OutputDir)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "**/*.md" {
		t.Errorf("expected default include [**/*.md], got %v", cfg.Include)
	}
	if !cfg.FrontMatter {
		t.Error("expected front_matter to default to true")
	}
	if cfg.GuidesRoot != "guides" {
		t.Errorf("expected default guides_root 'guides', got %s", cfg.GuidesRoot)
	}
	if cfg.Server.Port != 4600 || cfg.Server.Host != "localhost" {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Redis.Prefix != "docmeta:" {
		t.Errorf("expected default redis prefix 'docmeta:', got %s", cfg.Redis.Prefix)
	}
	if cfg.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Workers)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	configContent := `
source_dir: content
include: ["api/**/*.md"]
exclude: ["api/drafts/**"]
output_dir: dist/meta
workers: 2
front_matter: false
guides_root: docs.guides
log:
  level: debug
  format: json
store:
  driver: sqlite3
  dsn: file:meta.db
server:
  port: 8080
  host: 0.0.0.0
`
	os.WriteFile("docmeta.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.SourceDir != "content" || cfg.OutputDir != "dist/meta" {
		t.Errorf("unexpected dirs %s %s", cfg.SourceDir, cfg.OutputDir)
	}
	if cfg.Workers != 2 || cfg.FrontMatter {
		t.Errorf("unexpected workers/front_matter %d %v", cfg.Workers, cfg.FrontMatter)
	}
	if cfg.Store.Driver != "sqlite3" || cfg.Store.DSN != "file:meta.db" {
		t.Errorf("unexpected store %+v", cfg.Store)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("expected address 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}

	opts := cfg.BuildOptions()
	if opts.SourceDir != "content" || opts.Workers != 2 || opts.Compiler.GuidesRoot != "docs.guides" || opts.Compiler.FrontMatter {
		t.Errorf("unexpected build options %+v", opts)
	}
	if sc := cfg.StoreConfig(); sc.Driver != "sqlite3" || sc.Redis.Prefix != "docmeta:" {
		t.Errorf("unexpected store config %+v", sc)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DOCMETA_WORKERS", "7")
	t.Setenv("DOCMETA_SERVER_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("expected workers 7 from env, got %d", cfg.Workers)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000 from env, got %d", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	os.WriteFile(path, []byte("source_dir: elsewhere\n"), 0644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SourceDir != "elsewhere" {
		t.Errorf("expected source_dir 'elsewhere', got %s", cfg.SourceDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"empty guides root", func(c *Config) { c.GuidesRoot = " " }, "guides_root"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql"; c.Store.DSN = "x" }, "store.driver"},
		{"driver without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg := Default()
	cfg.SourceDir = "handbook"
	cfg.Workers = 3
	if err := Write("docmeta.yml", cfg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected config file to exist")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SourceDir != "handbook" || loaded.Workers != 3 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestGetProjectRoot(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "docmeta.yaml"), []byte(""), 0644)
	sub := filepath.Join(root, "docs", "api")
	os.MkdirAll(sub, 0755)
	chdir(t, sub)

	got, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected project root, got %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if gotResolved, _ := filepath.EvalSymlinks(got); gotResolved != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
