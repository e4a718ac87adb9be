// Package expr is the host-language expression service. References and
// example bodies are kept as source text; parsing only validates them and
// records the syntactic shape, the emitter decides how to materialize them.
package expr

import "fmt"

// Expr is a parsed reference expression, carried as raw source
type Expr struct {
	Source string
	// Node is the syntax node kind of the expression, e.g. "member_expression"
	Node string
}

func (e Expr) String() string {
	return e.Source
}

// IsZero reports whether e holds no expression
func (e Expr) IsZero() bool {
	return e.Source == ""
}

// Lazy is a deferred reference. Kind names the relation it expresses
// (the special field key without its "~" prefix); the target runtime
// resolves Expr only when the field is read, so forward references stay
// valid.
type Lazy struct {
	Kind string
	Expr Expr
}

func (l Lazy) String() string {
	return fmt.Sprintf("~%s(%s)", l.Kind, l.Expr.Source)
}

// Function is a zero-argument function whose body has been validated.
// Async marks bodies that were wrapped because they use await.
type Function struct {
	Body  string
	Async bool
}

// Parser parses host-language source fragments
type Parser interface {
	// ParseExpression parses a single expression, such as a symbol reference
	ParseExpression(source string) (Expr, error)
	// ParseStatements parses a function body
	ParseStatements(source string) (Function, error)
}

// SyntaxError reports a parse failure at a 1-indexed position relative to
// the start of the parsed fragment.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
	Source  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
