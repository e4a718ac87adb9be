// Package build compiles a tree of documents: it discovers sources,
// compiles them in parallel with a content-addressed cache and emits the
// results in discovery order.
package build

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/docmeta/compiler"
	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/internal/logging"
)

// Options configures a Builder
type Options struct {
	SourceDir string
	Include   []string
	Exclude   []string
	// Workers bounds the number of documents compiled at once
	Workers   int
	CacheSize int
	Compiler  compiler.Options
	// Progress, when set, is called after each document compiles. Calls are
	// serialized.
	Progress func(done, total int)
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		SourceDir: "docs",
		Include:   []string{"**/*.md"},
		Exclude:   []string{"node_modules/**"},
		Workers:   runtime.NumCPU(),
		CacheSize: DefaultCacheSize,
		Compiler: compiler.Options{
			FrontMatter: true,
			GuidesRoot:  analyzer.DefaultGuidesRoot,
		},
	}
}

// DocumentResult is the outcome for one document
type DocumentResult struct {
	Path   string
	Hash   string
	Units  []analyzer.Unit
	Cached bool
	Errors []errors.CompilerError
}

// Failed reports whether the document produced no output
func (d DocumentResult) Failed() bool {
	return len(d.Errors) > 0
}

// Report contains information about a build
type Report struct {
	RunID     string
	Documents []DocumentResult
	Units     int
	CacheHits int
	Duration  time.Duration
	Errors    *errors.ErrorRecovery
}

// Success reports whether every document compiled and emitted
func (r *Report) Success() bool {
	return !r.Errors.HasErrors()
}

// Builder coordinates discovery, compilation and emission. Build may be
// called repeatedly; the cache carries over between builds.
type Builder struct {
	opts      Options
	discovery *Discovery
	compiler  *compiler.Compiler
	cache     *Cache
	driver    *emit.Driver
	logger    *zap.Logger

	hashes sync.Map // document path -> source hash of the last build
}

// New creates a builder. A nil driver compiles without emitting.
func New(opts Options, driver *emit.Driver, logger *zap.Logger) (*Builder, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	discovery, err := NewDiscovery(opts.SourceDir, opts.Include, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery pattern: %w", err)
	}
	cache, err := NewCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Builder{
		opts:      opts,
		discovery: discovery,
		compiler:  compiler.New(opts.Compiler),
		cache:     cache,
		driver:    driver,
		logger:    logging.OrNop(logger),
	}, nil
}

// Discovery returns the builder's document discovery
func (b *Builder) Discovery() *Discovery {
	return b.discovery
}

// Cache returns the compile cache
func (b *Builder) Cache() *Cache {
	return b.cache
}

// SourceHash returns the source hash recorded for a document by the last
// build, or "" if the document was not built.
func (b *Builder) SourceHash(document string) string {
	if h, ok := b.hashes.Load(document); ok {
		return h.(string)
	}
	return ""
}

// Build discovers and builds every document under the source directory
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	paths, err := b.discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents in %s: %w", b.opts.SourceDir, err)
	}
	return b.BuildFiles(ctx, paths)
}

// BuildFiles builds the given documents. Compilation runs in parallel;
// emission runs sequentially in the order of paths. A document that fails
// to compile or emit is recorded in the report and does not stop the others.
func (b *Builder) BuildFiles(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Documents: make([]DocumentResult, len(paths)),
		Errors:    errors.NewErrorRecovery(),
	}

	b.logger.Debug("build started",
		zap.String("run_id", report.RunID),
		zap.Int("documents", len(paths)),
		zap.Int("workers", b.opts.Workers))

	var (
		progressMu sync.Mutex
		done       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Documents[i] = b.compile(path)
			if b.opts.Progress != nil {
				progressMu.Lock()
				done++
				b.opts.Progress(done, len(paths))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range report.Documents {
		doc := &report.Documents[i]
		if doc.Cached {
			report.CacheHits++
		}
		if !doc.Failed() && b.driver != nil {
			if err := b.driver.Emit(ctx, doc.Path, doc.Units); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				doc.Errors = append(doc.Errors, asCompilerError(err, doc.Path))
			}
		}

		if doc.Failed() {
			for _, cerr := range doc.Errors {
				report.Errors.Recover(cerr)
			}
			b.logger.Warn("document failed",
				zap.String("file", doc.Path),
				zap.Int("errors", len(doc.Errors)))
			continue
		}
		report.Units += len(doc.Units)
	}

	report.Duration = time.Since(start)
	b.logger.Info("build finished",
		zap.String("run_id", report.RunID),
		zap.Int("documents", len(paths)),
		zap.Int("units", report.Units),
		zap.Int("cache_hits", report.CacheHits),
		zap.Int("errors", report.Errors.ErrorCount()),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (b *Builder) compile(path string) DocumentResult {
	result := DocumentResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		cerr := errors.NewCompilerError(errors.PhaseIO, errors.ErrDocumentUnreadable,
			fmt.Sprintf("%s: %v", errors.GetErrorMessage(errors.ErrDocumentUnreadable), err),
			errors.SourceLocation{File: path}, errors.Error)
		result.Errors = []errors.CompilerError{cerr}
		return result
	}

	source := string(data)
	result.Hash = HashSource(source)
	b.hashes.Store(path, result.Hash)

	key := Key(path, source)
	if cached, ok := b.cache.Get(key); ok {
		result.Units = cached.Units
		result.Cached = true
		return result
	}

	compiled, recovery := b.compiler.Diagnose(compiler.Document{Path: path, Source: source})
	if recovery.HasErrors() {
		result.Errors = recovery.GetErrors()
		return result
	}

	result.Units = compiled.Units
	b.cache.Put(key, compiled)
	return result
}

func asCompilerError(err error, file string) errors.CompilerError {
	if cerr, ok := errors.AsCompilerError(err); ok {
		if cerr.Location.File == "" {
			cerr = cerr.WithFile(file)
		}
		return cerr
	}
	return errors.NewCompilerError(errors.PhaseEmit, errors.ErrEmitFailed, err.Error(),
		errors.SourceLocation{File: file}, errors.Error)
}

// Close releases the compile cache
func (b *Builder) Close() {
	b.cache.Close()
}
