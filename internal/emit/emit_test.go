package emit

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/compiler/expr"
	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

func symbolUnit(ref string, fields analyzer.Fields) analyzer.Unit {
	return analyzer.Unit{
		Target: analyzer.Target{
			Kind:      analyzer.TargetSymbol,
			Reference: ref,
			Expr:      expr.Expr{Source: ref, Node: "member_expression"},
		},
		Fields: fields,
		File:   "docs/array.md",
		Line:   3,
	}
}

func guideUnit(title, parent string) analyzer.Unit {
	return analyzer.Unit{
		Target: analyzer.Target{
			Kind:   analyzer.TargetGuide,
			Title:  title,
			Parent: expr.Expr{Source: parent, Node: "identifier"},
		},
		Fields: analyzer.Fields{"name": title, "module": "guides", "documentation": ""},
		File:   "docs/guide.md",
		Line:   1,
	}
}

func TestValidate_AcceptsRepresentableValues(t *testing.T) {
	u := symbolUnit("Array.prototype.map", analyzer.Fields{
		"documentation": "Maps.",
		"since":         1,
		"ratio":         0.5,
		"stable":        true,
		"tags":          []any{"a", 2, false},
		"meta":          map[string]any{"nested": map[string]any{"deep": "x"}},
		"ref":           expr.Expr{Source: "Array"},
		"owner":         expr.Lazy{Kind: "belongsTo", Expr: expr.Expr{Source: "Array"}},
		"examples":      []analyzer.Example{{Name: "x", Source: "return 1;", Code: expr.Function{Body: "return 1;"}}},
	})
	assert.NoError(t, Validate(u))
}

func TestValidate_UnsupportedValues(t *testing.T) {
	tests := []struct {
		name  string
		field any
		path  string
	}{
		{"null", nil, "bad"},
		{"nested null", map[string]any{"inner": nil}, "bad.inner"},
		{"null in list", []any{"ok", nil}, "bad[1]"},
		{"struct", struct{}{}, "bad"},
		{"nan", math.NaN(), "bad"},
		{"inf", math.Inf(1), "bad"},
		{"non-string keys", map[any]any{"a": 1}, "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(symbolUnit("a", analyzer.Fields{"bad": tt.field}))
			require.Error(t, err)

			cerr, ok := errors.AsCompilerError(err)
			require.True(t, ok)
			assert.Equal(t, errors.PhaseEmit, cerr.Phase)
			assert.Equal(t, errors.ErrUnsupportedValue, cerr.Code)
			assert.Contains(t, cerr.Message, `"`+tt.path+`"`)
			assert.Equal(t, "docs/array.md", cerr.Location.File)
			assert.Equal(t, 3, cerr.Location.Line)
		})
	}
}

func TestValidate_UnresolvedTarget(t *testing.T) {
	u := symbolUnit("a", nil)
	u.Target.Expr = expr.Expr{}
	assert.True(t, errors.HasCode(Validate(u), errors.ErrUnresolvedTarget))

	g := guideUnit("Intro", "")
	assert.True(t, errors.HasCode(Validate(g), errors.ErrUnresolvedTarget))
}

func TestEncode(t *testing.T) {
	u := symbolUnit("Array.prototype.map", analyzer.Fields{
		"ref":   expr.Expr{Source: "Array"},
		"owner": expr.Lazy{Kind: "belongsTo", Expr: expr.Expr{Source: "Array"}},
		"examples": []analyzer.Example{{
			Name: "Usage", Source: "await x;", Inferred: true,
			Code: expr.Function{Body: "return (async () => {\nawait x;\n})();", Async: true},
		}},
		"list": []any{expr.Expr{Source: "A"}},
	})
	u.Overrides = []string{"stability"}

	e := Encode(u)
	assert.Equal(t, metadata.KindSymbol, e.Kind)
	assert.Equal(t, "Array.prototype.map", e.Target)
	assert.Equal(t, "docs/array.md", e.Document)
	assert.Equal(t, []string{"stability"}, e.Overrides)

	assert.Equal(t, map[string]any{"$expr": "Array"}, e.Fields["ref"])
	assert.Equal(t, map[string]any{"$lazy": "Array", "kind": "belongsTo"}, e.Fields["owner"])
	assert.Equal(t, []any{map[string]any{"$expr": "A"}}, e.Fields["list"])

	examples := e.Fields["examples"].([]any)
	require.Len(t, examples, 1)
	ex := examples[0].(map[string]any)
	assert.Equal(t, "Usage", ex["name"])
	assert.Equal(t, true, ex["inferred"])
	assert.Equal(t, map[string]any{"$function": "return (async () => {\nawait x;\n})();", "async": true}, ex["code"])

	_, err := json.Marshal(e)
	assert.NoError(t, err)
}

func TestEncode_Guide(t *testing.T) {
	e := Encode(guideUnit("Intro", "guides"))
	assert.Equal(t, metadata.KindGuide, e.Kind)
	assert.Equal(t, "Intro", e.Target)
	assert.Equal(t, "guides", e.Parent)
}

type recordingService struct {
	units []analyzer.Unit
	err   error
}

func (s *recordingService) Emit(_ context.Context, u analyzer.Unit) error {
	if s.err != nil {
		return s.err
	}
	s.units = append(s.units, u)
	return nil
}

type documentService struct {
	documents []string
}

func (s *documentService) Emit(context.Context, analyzer.Unit) error {
	panic("per-unit emit should not be called")
}

func (s *documentService) EmitDocument(_ context.Context, document string, _ []analyzer.Unit) error {
	s.documents = append(s.documents, document)
	return nil
}

func TestDriver_EmitsAllUnits(t *testing.T) {
	first, second := &recordingService{}, &recordingService{}
	d := NewDriver(logging.Nop(), first, second)

	units := []analyzer.Unit{symbolUnit("a", nil), symbolUnit("b", nil)}
	require.NoError(t, d.Emit(context.Background(), "docs/array.md", units))

	assert.Len(t, first.units, 2)
	assert.Len(t, second.units, 2)
	assert.Equal(t, "b", second.units[1].Target.Reference)
}

func TestDriver_ValidatesBeforeEmitting(t *testing.T) {
	svc := &recordingService{}
	d := NewDriver(nil, svc)

	units := []analyzer.Unit{
		symbolUnit("a", analyzer.Fields{"ok": 1}),
		symbolUnit("b", analyzer.Fields{"bad": nil}),
	}
	err := d.Emit(context.Background(), "docs/array.md", units)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnsupportedValue))
	assert.Empty(t, svc.units, "no unit of a failing document may be emitted")
}

func TestDriver_BackendFailure(t *testing.T) {
	d := NewDriver(nil, &recordingService{err: stderrors.New("disk full")})

	err := d.Emit(context.Background(), "docs/array.md", []analyzer.Unit{symbolUnit("a", nil)})
	cerr, ok := errors.AsCompilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrEmitFailed, cerr.Code)
	assert.Equal(t, "docs/array.md", cerr.Location.File)
	assert.Contains(t, cerr.Message, "disk full")
}

func TestDriver_PrefersDocumentService(t *testing.T) {
	ds := &documentService{}
	d := NewDriver(nil)
	d.Add(ds)

	require.NoError(t, d.Emit(context.Background(), "docs/a.md", []analyzer.Unit{symbolUnit("a", nil)}))
	assert.Equal(t, []string{"docs/a.md"}, ds.documents)
}

func TestDriver_ServiceFunc(t *testing.T) {
	var seen []string
	d := NewDriver(nil, ServiceFunc(func(_ context.Context, u analyzer.Unit) error {
		seen = append(seen, u.Target.Reference)
		return nil
	}))
	require.NoError(t, d.Emit(context.Background(), "x.md", []analyzer.Unit{symbolUnit("a", nil)}))
	assert.Equal(t, []string{"a"}, seen)
}

func TestDriver_CancelledContext(t *testing.T) {
	svc := &recordingService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDriver(nil, svc).Emit(ctx, "x.md", []analyzer.Unit{symbolUnit("a", nil)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, svc.units)
}

func TestRegistryService_ReplacesDocument(t *testing.T) {
	reg := metadata.NewRegistry()
	d := NewDriver(nil, NewRegistryService(reg))
	ctx := context.Background()

	require.NoError(t, d.Emit(ctx, "docs/array.md", []analyzer.Unit{symbolUnit("a", nil), symbolUnit("b", nil)}))
	require.NoError(t, d.Emit(ctx, "docs/guide.md", []analyzer.Unit{guideUnit("Intro", "guides")}))
	assert.Equal(t, 3, reg.Len())

	require.NoError(t, d.Emit(ctx, "docs/array.md", []analyzer.Unit{symbolUnit("a", nil)}))
	assert.Equal(t, 2, reg.Len())
	_, err := reg.Symbol("b")
	assert.Error(t, err, "stale symbol should be removed on rebuild")

	guides := reg.GuidesByParent("guides")
	require.Len(t, guides, 1)
	assert.Equal(t, "Intro", guides[0].Target)
}

func TestArtifactWriter_Path(t *testing.T) {
	w := NewArtifactWriter("docs", "build/metadata")

	p, err := w.ArtifactPath(filepath.Join("docs", "api", "array.md"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("build", "metadata", "api", "array.json"), p)

	_, err = w.ArtifactPath(filepath.Join("other", "x.md"))
	assert.Error(t, err)
}

func TestArtifactWriter_WritesFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	w := NewArtifactWriter(src, out)
	w.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	w.SourceHash = func(string) string { return "abc" }

	doc := filepath.Join(src, "array.md")
	require.NoError(t, NewDriver(nil, w).Emit(context.Background(), doc, []analyzer.Unit{symbolUnit("a", analyzer.Fields{"since": 1})}))

	data, err := os.ReadFile(filepath.Join(out, "array.json"))
	require.NoError(t, err)

	var a metadata.Artifact
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, metadata.SchemaVersion, a.Version)
	assert.Equal(t, "abc", a.SourceHash)
	assert.Equal(t, filepath.ToSlash(doc), a.Source)
	require.Len(t, a.Units, 1)
	assert.Equal(t, "a", a.Units[0].Target)
	assert.Equal(t, float64(1), a.Units[0].Fields["since"])

	reg := metadata.NewRegistry()
	require.NoError(t, reg.RegisterArtifact(data))
	assert.Equal(t, 1, reg.Len())
}

func TestArtifactWriter_Stream(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)

	d := NewDriver(nil, w)
	require.NoError(t, d.Emit(context.Background(), "a.md", []analyzer.Unit{symbolUnit("a", nil)}))
	require.NoError(t, d.Emit(context.Background(), "b.md", []analyzer.Unit{symbolUnit("b", nil)}))

	dec := json.NewDecoder(&buf)
	var sources []string
	for dec.More() {
		var a metadata.Artifact
		require.NoError(t, dec.Decode(&a))
		sources = append(sources, a.Source)
	}
	assert.Equal(t, []string{"a.md", "b.md"}, sources)
}

func TestDriver_Remove(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	doc := filepath.Join(src, "array.md")

	reg := metadata.NewRegistry()
	writer := NewArtifactWriter(src, out)
	recorder := &recordingService{}
	d := NewDriver(nil, NewRegistryService(reg), writer, recorder)
	ctx := context.Background()

	require.NoError(t, d.Emit(ctx, doc, []analyzer.Unit{symbolUnit("a", nil)}))
	require.FileExists(t, filepath.Join(out, "array.json"))

	require.NoError(t, d.Remove(ctx, doc))
	assert.Equal(t, 0, reg.Len())
	assert.NoFileExists(t, filepath.Join(out, "array.json"))

	// removing twice is not an error
	assert.NoError(t, d.Remove(ctx, doc))
}

func TestArtifactWriter_RemoveStream(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, NewStreamWriter(&buf).Remove(context.Background(), "a.md"))
	assert.Zero(t, buf.Len())
}
