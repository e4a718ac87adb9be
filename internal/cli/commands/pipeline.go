package commands

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/cli/config"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/internal/store"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// loadConfig loads the configuration selected by --config and applies
// --log-level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// pipelineOptions selects where a pipeline emits
type pipelineOptions struct {
	// OutputDir receives JSON artifacts unless Stream is set
	OutputDir string
	// Stream receives the artifacts as a JSON stream
	Stream io.Writer
	// Registry, when set, receives every unit as well
	Registry *metadata.Registry
	// Progress is forwarded to the builder
	Progress func(done, total int)
}

// pipeline is a builder wired to artifacts, configured stores and an
// optional registry
type pipeline struct {
	builder *build.Builder
	driver  *emit.Driver
	stores  *store.Stores
}

func openPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts pipelineOptions) (*pipeline, error) {
	var artifacts *emit.ArtifactWriter
	if opts.Stream != nil {
		artifacts = emit.NewStreamWriter(opts.Stream)
	} else {
		artifacts = emit.NewArtifactWriter(cfg.SourceDir, opts.OutputDir)
	}

	driver := emit.NewDriver(logger, artifacts)
	if opts.Registry != nil {
		driver.Add(emit.NewRegistryService(opts.Registry))
	}

	stores, err := store.Open(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	for _, s := range stores.Services() {
		driver.Add(s)
	}

	buildOpts := cfg.BuildOptions()
	buildOpts.Progress = opts.Progress
	builder, err := build.New(buildOpts, driver, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}
	artifacts.SourceHash = builder.SourceHash

	return &pipeline{builder: builder, driver: driver, stores: stores}, nil
}

// remove drops a deleted document from every output
func (p *pipeline) remove(ctx context.Context, document string) error {
	return p.driver.Remove(ctx, document)
}

func (p *pipeline) Close() error {
	p.builder.Close()
	return p.stores.Close()
}
