// Package watch rebuilds documents when they change and broadcasts build
// events to websocket clients.
package watch

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/logging"
)

// SessionOptions configures a Session
type SessionOptions struct {
	// Hub receives build events; nil disables broadcasting
	Hub *EventHub
	// OnRemove is called for every deleted document
	OnRemove func(document string)
	// OnBuild is called after every build with its report
	OnBuild func(report *build.Report)
	// Debounce overrides DefaultDebounce
	Debounce time.Duration
}

// Session couples a FileWatcher to a Builder. Builds never overlap.
type Session struct {
	builder *build.Builder
	opts    SessionOptions
	watcher *FileWatcher
	logger  *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewSession creates a session watching the builder's source directory
func NewSession(builder *build.Builder, opts SessionOptions, logger *zap.Logger) (*Session, error) {
	s := &Session{
		builder: builder,
		opts:    opts,
		logger:  logging.OrNop(logger),
		ctx:     context.Background(),
	}

	discovery := builder.Discovery()
	watcher, err := NewFileWatcher(discovery.Root(), discovery.Match, s.onChange, logger)
	if err != nil {
		return nil, err
	}
	if opts.Debounce > 0 {
		watcher.SetDebounce(opts.Debounce)
	}
	s.watcher = watcher
	return s, nil
}

// Start runs a full build, then starts watching. Rebuilds triggered by the
// watcher use ctx.
func (s *Session) Start(ctx context.Context) (*build.Report, error) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.notifyBuilding(nil)
	report, err := s.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	s.finish(report)

	if err := s.watcher.Start(); err != nil {
		return report, err
	}
	return report, nil
}

// Stop stops watching
func (s *Session) Stop() error {
	return s.watcher.Stop()
}

func (s *Session) onChange(files []string) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	_, err := s.Rebuild(ctx, files)
	return err
}

// Rebuild builds the changed documents. Documents that no longer exist are
// passed to OnRemove instead.
func (s *Session) Rebuild(ctx context.Context, files []string) (*build.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); stderrors.Is(err, fs.ErrNotExist) {
			s.logger.Info("document removed", zap.String("file", f))
			if s.opts.OnRemove != nil {
				s.opts.OnRemove(f)
			}
			continue
		}
		existing = append(existing, f)
	}

	s.notifyBuilding(files)
	report, err := s.builder.BuildFiles(ctx, existing)
	if err != nil {
		return nil, err
	}
	s.finish(report)
	return report, nil
}

func (s *Session) notifyBuilding(files []string) {
	if s.opts.Hub != nil {
		s.opts.Hub.NotifyBuilding(files)
	}
}

func (s *Session) finish(report *build.Report) {
	if s.opts.Hub != nil {
		if report.Success() {
			s.opts.Hub.NotifySuccess(report.Units, report.Duration)
		} else {
			s.opts.Hub.NotifyErrors(report.Errors.GetErrors())
		}
	}
	if s.opts.OnBuild != nil {
		s.opts.OnBuild(report)
	}
}
