package emit

import (
	"context"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// RegistryService emits into an in-memory metadata registry. Guides are
// registered under their parent, which the registry creates on demand.
type RegistryService struct {
	registry *metadata.Registry
}

// NewRegistryService creates a service writing to registry
func NewRegistryService(registry *metadata.Registry) *RegistryService {
	return &RegistryService{registry: registry}
}

// Emit registers one unit
func (s *RegistryService) Emit(_ context.Context, unit analyzer.Unit) error {
	s.registry.Register(Encode(unit))
	return nil
}

// EmitDocument replaces every entry the document registered before, so a
// rebuilt document does not leave stale targets behind.
func (s *RegistryService) EmitDocument(_ context.Context, document string, units []analyzer.Unit) error {
	s.registry.RemoveDocument(document)
	for _, u := range units {
		s.registry.Register(Encode(u))
	}
	return nil
}

// Remove drops every entry of a deleted document
func (s *RegistryService) Remove(_ context.Context, document string) error {
	s.registry.RemoveDocument(document)
	return nil
}
