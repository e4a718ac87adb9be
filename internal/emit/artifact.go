package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// ArtifactWriter writes one JSON artifact per document, either as files
// under an output directory or as a stream of JSON documents.
type ArtifactWriter struct {
	sourceRoot string
	outputDir  string

	mu     sync.Mutex
	stream io.Writer

	// SourceHash, when set, supplies the source hash recorded in artifacts
	SourceHash func(document string) string
	now        func() time.Time
}

// NewArtifactWriter writes <outputDir>/<document relative to sourceRoot
// without extension>.json
func NewArtifactWriter(sourceRoot, outputDir string) *ArtifactWriter {
	return &ArtifactWriter{sourceRoot: sourceRoot, outputDir: outputDir, now: time.Now}
}

// NewStreamWriter writes every artifact to w, one indented JSON document
// after another.
func NewStreamWriter(w io.Writer) *ArtifactWriter {
	return &ArtifactWriter{stream: w, now: time.Now}
}

// ArtifactPath returns the output path for a document
func (w *ArtifactWriter) ArtifactPath(document string) (string, error) {
	rel := document
	if w.sourceRoot != "" {
		r, err := filepath.Rel(w.sourceRoot, document)
		if err != nil {
			return "", fmt.Errorf("artifact path for %s: %w", document, err)
		}
		rel = r
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("document %s is outside source root %s", document, w.sourceRoot)
	}

	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(w.outputDir, rel+".json"), nil
}

// Artifact builds the artifact for a document without writing it
func (w *ArtifactWriter) Artifact(document string, units []analyzer.Unit) metadata.Artifact {
	a := metadata.Artifact{
		Version:   metadata.SchemaVersion,
		Generated: w.now().UTC(),
		Source:    filepath.ToSlash(document),
		Units:     make([]metadata.Entry, 0, len(units)),
	}
	if w.SourceHash != nil {
		a.SourceHash = w.SourceHash(document)
	}
	for _, u := range units {
		a.Units = append(a.Units, Encode(u))
	}
	return a
}

// Emit writes a single-unit artifact for the unit's document
func (w *ArtifactWriter) Emit(ctx context.Context, unit analyzer.Unit) error {
	return w.EmitDocument(ctx, unit.File, []analyzer.Unit{unit})
}

// EmitDocument writes the artifact of one document
func (w *ArtifactWriter) EmitDocument(_ context.Context, document string, units []analyzer.Unit) error {
	data, err := json.MarshalIndent(w.Artifact(document, units), "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact for %s: %w", document, err)
	}
	data = append(data, '\n')

	if w.stream != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, err := w.stream.Write(data)
		return err
	}

	path, err := w.ArtifactPath(document)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Remove deletes the artifact of a deleted document. Streams are left
// untouched.
func (w *ArtifactWriter) Remove(_ context.Context, document string) error {
	if w.stream != nil {
		return nil
	}
	path, err := w.ArtifactPath(document)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes through a temporary file so readers never see a
// partial artifact.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
