package compiler

import (
	"testing"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/compiler/errors"
)

const arrayDoc = `@annotate: Array.prototype.map
since: 1
---
Creates a new array.

Example::

` + "```" + `
return [1, 2].map(x => x * 2);
` + "```" + `
@guide: Arrays
---
All about arrays.
`

func TestCompile(t *testing.T) {
	c := New(Options{})
	result, err := c.Compile(Document{Path: "array.md", Source: arrayDoc})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if len(result.Units) != 2 {
		t.Fatalf("Expected 2 units, got %d", len(result.Units))
	}

	sym := result.Units[0]
	if sym.Target.Kind != analyzer.TargetSymbol || sym.Target.Reference != "Array.prototype.map" {
		t.Errorf("Unexpected first target %+v", sym.Target)
	}
	if len(sym.Fields.Examples()) != 1 {
		t.Errorf("Expected one mined example, got %v", sym.Fields["examples"])
	}
	if sym.File != "array.md" {
		t.Errorf("Expected file array.md, got %q", sym.File)
	}

	guide := result.Units[1]
	if guide.Target.Kind != analyzer.TargetGuide || guide.Target.Parent.Source != analyzer.DefaultGuidesRoot {
		t.Errorf("Unexpected guide target %+v", guide.Target)
	}
}

func TestCompile_GuidesRoot(t *testing.T) {
	c := New(Options{GuidesRoot: "docs.guides"})
	result, err := c.Compile(Document{Path: "g.md", Source: "@guide: Intro\n"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Units[0].Target.Parent.Source != "docs.guides" {
		t.Errorf("Expected configured guides root, got %q", result.Units[0].Target.Parent.Source)
	}
}

func TestCompile_StructuralErrorFailsDocument(t *testing.T) {
	c := New(Options{})
	result, err := c.Compile(Document{Path: "bad.md", Source: "intro\n@annotate: a\n"})
	if result != nil {
		t.Errorf("Expected no result on failure, got %+v", result)
	}
	if !errors.IsPhase(err, errors.PhaseStructure) {
		t.Fatalf("Expected structural error, got %v", err)
	}
}

func TestCompile_FrontMatter(t *testing.T) {
	source := `---
since: 3
tags: [core]
released: 2020-02-01
---

@annotate: a
---
Doc a.
@annotate: b
since: 4
`
	c := New(Options{FrontMatter: true})
	result, err := c.Compile(Document{Path: "fm.md", Source: source})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(result.Units) != 2 {
		t.Fatalf("Expected 2 units, got %d", len(result.Units))
	}

	if result.Defaults["released"] != "2020-02-01" {
		t.Errorf("Expected date default to be a string, got %#v", result.Defaults["released"])
	}
	if result.Units[0].Fields["since"] != 3 {
		t.Errorf("Expected default since 3, got %v", result.Units[0].Fields["since"])
	}
	if result.Units[1].Fields["since"] != 4 {
		t.Errorf("Expected own since 4, got %v", result.Units[1].Fields["since"])
	}
	if result.Units[0].Line != 7 || result.Units[1].Line != 10 {
		t.Errorf("Expected document-relative lines 7 and 10, got %d and %d", result.Units[0].Line, result.Units[1].Line)
	}

	result.Units[0].Fields["tags"].([]any)[0] = "changed"
	if result.Units[1].Fields["tags"].([]any)[0] != "core" {
		t.Error("Expected each unit to get its own copy of the defaults")
	}
}

func TestCompile_FrontMatterErrorLines(t *testing.T) {
	source := "---\ntitle: x\n---\n@annotate: a\nx: 1\n@annotate: b\n"
	_, err := New(Options{FrontMatter: true}).Compile(Document{Path: "fm.md", Source: source})
	cerr, ok := errors.AsCompilerError(err)
	if !ok {
		t.Fatalf("Expected CompilerError, got %v", err)
	}
	if cerr.Code != errors.ErrAnnotationNotAdjacent || cerr.Location.Line != 6 {
		t.Errorf("Expected %s at line 6, got %s at %d", errors.ErrAnnotationNotAdjacent, cerr.Code, cerr.Location.Line)
	}
}

func TestCompile_FrontMatterDisabled(t *testing.T) {
	source := "---\ntitle: x\n---\n@annotate: a\n"
	_, err := New(Options{}).Compile(Document{Path: "fm.md", Source: source})
	if !errors.HasCode(err, errors.ErrSeparatorWithoutEntity) {
		t.Fatalf("Expected %s, got %v", errors.ErrSeparatorWithoutEntity, err)
	}
}

func TestCompile_MalformedFrontMatter(t *testing.T) {
	source := "---\n- not\n- a mapping\n---\n@annotate: a\n"
	_, err := New(Options{FrontMatter: true}).Compile(Document{Path: "fm.md", Source: source})
	if !errors.HasCode(err, errors.ErrMalformedFrontMatter) {
		t.Fatalf("Expected %s, got %v", errors.ErrMalformedFrontMatter, err)
	}
}

func TestDiagnose_CollectsRecordErrors(t *testing.T) {
	source := `@annotate: good
---
@annotate: bad.
---
@annotate: also bad
---
@annotate: fine
`
	result, recovery := New(Options{}).Diagnose(Document{Path: "d.md", Source: source})
	if result == nil {
		t.Fatal("Expected a partial result")
	}
	if recovery.ErrorCount() != 2 {
		t.Fatalf("Expected 2 errors, got %d: %s", recovery.ErrorCount(), recovery.Error())
	}
	if len(result.Units) != 2 {
		t.Errorf("Expected the 2 good units, got %d", len(result.Units))
	}
	for _, e := range recovery.GetErrors() {
		if e.Code != errors.ErrInvalidReference {
			t.Errorf("Expected %s, got %s", errors.ErrInvalidReference, e.Code)
		}
	}
}

func TestDiagnose_StructuralError(t *testing.T) {
	result, recovery := New(Options{}).Diagnose(Document{Path: "d.md", Source: "---\n"})
	if result != nil {
		t.Errorf("Expected no result, got %+v", result)
	}
	if got := recovery.GetErrorsByPhase(errors.PhaseStructure); len(got) != 1 {
		t.Errorf("Expected one structural error, got %v", recovery.GetAll())
	}
}
