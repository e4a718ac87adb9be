package expr

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

const (
	exprPrefix = "("
	exprSuffix = "\n);"

	bodyPrefix = "function __example__() {\n"
	bodySuffix = "\n}"
)

// TreeSitterParser parses TypeScript fragments with tree-sitter. It is safe
// for concurrent use: every call gets its own tree-sitter parser.
type TreeSitterParser struct {
	language *sitter.Language
}

// NewTreeSitterParser creates a new TypeScript expression parser
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{
		language: sitter.NewLanguage(typescript.LanguageTypescript()),
	}
}

// ParseExpression parses source as exactly one expression
func (p *TreeSitterParser) ParseExpression(source string) (Expr, error) {
	if strings.TrimSpace(source) == "" {
		return Expr{}, &SyntaxError{Message: "empty expression", Line: 1, Column: 1, Source: source}
	}

	wrapped := []byte(exprPrefix + source + exprSuffix)
	var result Expr
	err := p.parse(wrapped, source, 0, len(exprPrefix), func(root *sitter.Node) error {
		stmts := namedChildren(root)
		if len(stmts) != 1 || stmts[0].Kind() != "expression_statement" {
			return &SyntaxError{Message: "expected a single expression", Line: 1, Column: 1, Source: source}
		}

		inner := namedChildren(stmts[0])
		if len(inner) != 1 || inner[0].Kind() != "parenthesized_expression" {
			return &SyntaxError{Message: "expected a single expression", Line: 1, Column: 1, Source: source}
		}

		node := inner[0]
		if exprs := namedChildren(node); len(exprs) == 1 {
			node = exprs[0]
		}

		result = Expr{Source: strings.TrimSpace(source), Node: node.Kind()}
		return nil
	})
	return result, err
}

// ParseStatements parses source as the body of a function
func (p *TreeSitterParser) ParseStatements(source string) (Function, error) {
	wrapped := []byte(bodyPrefix + source + bodySuffix)
	err := p.parse(wrapped, source, 1, 0, nil)
	if err != nil {
		return Function{}, err
	}
	return Function{Body: source}, nil
}

// parse runs tree-sitter over a wrapped fragment. rowOffset and colOffset
// undo the wrapper so reported positions are relative to the fragment.
func (p *TreeSitterParser) parse(wrapped []byte, source string, rowOffset, colOffset int, check func(*sitter.Node) error) error {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}

	tree := parser.Parse(wrapped, nil)
	if tree == nil {
		return fmt.Errorf("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return syntaxErrorAt(firstErrorNode(root), wrapped, source, rowOffset, colOffset)
	}

	if check != nil {
		return check(root)
	}
	return nil
}

func syntaxErrorAt(node *sitter.Node, wrapped []byte, source string, rowOffset, colOffset int) *SyntaxError {
	if node == nil {
		return &SyntaxError{Message: "syntax error", Line: 1, Column: 1, Source: source}
	}

	pos := node.StartPosition()
	row := int(pos.Row) - rowOffset
	col := int(pos.Column)
	if row == 0 {
		col -= colOffset
	}

	// Errors inside the wrapper itself are reported at the fragment edges.
	lines := strings.Count(source, "\n")
	switch {
	case row < 0:
		row, col = 0, 0
	case row > lines:
		row = lines
		col = len(source) - strings.LastIndex(source, "\n") - 1
	}
	if col < 0 {
		col = 0
	}

	var msg string
	if node.IsMissing() {
		msg = fmt.Sprintf("missing %s", node.Kind())
	} else {
		text := strings.TrimSpace(node.Utf8Text(wrapped))
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		if text == "" {
			msg = "unexpected end of input"
		} else {
			msg = fmt.Sprintf("unexpected %q", text)
		}
	}

	return &SyntaxError{Message: msg, Line: row + 1, Column: col + 1, Source: source}
}

// firstErrorNode returns the first ERROR or MISSING node in document order
func firstErrorNode(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}
