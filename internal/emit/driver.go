// Package emit hands analyzed units to emission backends. A document is
// validated as a whole before any backend sees it, so a document either
// emits completely or not at all.
package emit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/internal/logging"
)

// Service receives units one at a time
type Service interface {
	Emit(ctx context.Context, unit analyzer.Unit) error
}

// DocumentService is implemented by services that work on whole documents,
// such as artifact writers. The driver prefers it over Emit.
type DocumentService interface {
	EmitDocument(ctx context.Context, document string, units []analyzer.Unit) error
}

// Remover is implemented by services that can drop the output of a
// deleted document
type Remover interface {
	Remove(ctx context.Context, document string) error
}

// ServiceFunc adapts a function to the Service interface
type ServiceFunc func(ctx context.Context, unit analyzer.Unit) error

// Emit calls f(ctx, unit)
func (f ServiceFunc) Emit(ctx context.Context, unit analyzer.Unit) error {
	return f(ctx, unit)
}

// Driver fans units out to every configured service
type Driver struct {
	services []Service
	logger   *zap.Logger
}

// NewDriver creates a driver emitting to services in order
func NewDriver(logger *zap.Logger, services ...Service) *Driver {
	return &Driver{services: services, logger: logging.OrNop(logger)}
}

// Add appends a service
func (d *Driver) Add(s Service) {
	d.services = append(d.services, s)
}

// Emit validates every unit of a document, then emits them. Validation
// failures are UnsupportedValueError or unresolved target errors; backend
// failures are reported as emit errors.
func (d *Driver) Emit(ctx context.Context, document string, units []analyzer.Unit) error {
	for _, u := range units {
		if err := Validate(u); err != nil {
			d.logger.Debug("unit rejected",
				zap.String("file", document),
				zap.Int("line", u.Line),
				zap.Error(err))
			return err
		}
	}

	for _, s := range d.services {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.emitTo(ctx, s, document, units); err != nil {
			return err
		}
	}

	d.logger.Debug("document emitted",
		zap.String("file", document),
		zap.Int("units", len(units)),
		zap.Int("services", len(d.services)))
	return nil
}

// Remove drops the output of a deleted document from every service that
// supports it.
func (d *Driver) Remove(ctx context.Context, document string) error {
	for _, s := range d.services {
		r, ok := s.(Remover)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Remove(ctx, document); err != nil {
			return emitFailed(document, 0, err)
		}
	}
	d.logger.Debug("document removed", zap.String("file", document))
	return nil
}

func (d *Driver) emitTo(ctx context.Context, s Service, document string, units []analyzer.Unit) error {
	if ds, ok := s.(DocumentService); ok {
		if err := ds.EmitDocument(ctx, document, units); err != nil {
			return emitFailed(document, 0, err)
		}
		return nil
	}

	for _, u := range units {
		if err := s.Emit(ctx, u); err != nil {
			return emitFailed(document, u.Line, err)
		}
	}
	return nil
}

func emitFailed(document string, line int, err error) error {
	if _, ok := errors.AsCompilerError(err); ok {
		return err
	}
	loc := errors.SourceLocation{File: document, Line: line}
	msg := fmt.Sprintf("%s: %v", errors.GetErrorMessage(errors.ErrEmitFailed), err)
	return errors.NewCompilerError(errors.PhaseEmit, errors.ErrEmitFailed, msg, loc, errors.Error)
}
