package expr

import (
	"errors"
	"testing"
)

func TestParseExpression(t *testing.T) {
	p := NewTreeSitterParser()

	tests := []struct {
		name   string
		source string
		node   string
	}{
		{"identifier", "Array", "identifier"},
		{"member", "Array.prototype.map", "member_expression"},
		{"subscript", `Symbol["iterator"]`, "subscript_expression"},
		{"call", "require('fs')", "call_expression"},
		{"padded", "  Math.max  ", "member_expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := p.ParseExpression(tt.source)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if e.Node != tt.node {
				t.Errorf("Expected node %q, got %q", tt.node, e.Node)
			}
			if e.IsZero() {
				t.Error("Expected a non-zero expression")
			}
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	p := NewTreeSitterParser()

	tests := []struct {
		name   string
		source string
	}{
		{"empty", "   "},
		{"trailing dot", "Array."},
		{"two expressions", "a b"},
		{"statement", "let x = 1"},
		{"escapes wrapper", "a) + (b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseExpression(tt.source)
			if err == nil {
				t.Fatalf("Expected error for %q", tt.source)
			}
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("Expected *SyntaxError, got %T", err)
			}
			if serr.Line < 1 || serr.Column < 1 {
				t.Errorf("Expected 1-indexed position, got %d:%d", serr.Line, serr.Column)
			}
			if serr.Source != tt.source {
				t.Errorf("Expected source to be carried, got %q", serr.Source)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	p := NewTreeSitterParser()

	fn, err := p.ParseStatements("const xs = [1, 2, 3];\nreturn xs.map(x => x * 2);")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fn.Async {
		t.Error("Expected a synchronous function")
	}
	if fn.Body != "const xs = [1, 2, 3];\nreturn xs.map(x => x * 2);" {
		t.Errorf("Expected body to be preserved, got %q", fn.Body)
	}
}

func TestParseStatements_ErrorLine(t *testing.T) {
	p := NewTreeSitterParser()

	_, err := p.ParseStatements("const a = 1;\nconst b = 2;\nconst = ;\n")
	if err == nil {
		t.Fatal("Expected a syntax error")
	}
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected *SyntaxError, got %T", err)
	}
	// The first two statements are valid; recovery may anchor the error on
	// the broken statement or just after it.
	if serr.Line < 3 || serr.Line > 4 {
		t.Errorf("Expected error near line 3, got %d (%s)", serr.Line, serr.Message)
	}
}

func TestLazyString(t *testing.T) {
	l := Lazy{Kind: "belongsTo", Expr: Expr{Source: "Array"}}
	if l.String() != "~belongsTo(Array)" {
		t.Errorf("Unexpected string %q", l.String())
	}
}

func BenchmarkParseExpression(b *testing.B) {
	p := NewTreeSitterParser()
	for i := 0; i < b.N; i++ {
		if _, err := p.ParseExpression("Array.prototype.map"); err != nil {
			b.Fatal(err)
		}
	}
}
