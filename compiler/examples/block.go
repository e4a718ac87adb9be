package examples

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies a top-level Markdown block
type BlockKind int

const (
	BlockOther BlockKind = iota
	BlockHeading
	BlockParagraph
	BlockCode
)

// String returns the string representation of the block kind
func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockParagraph:
		return "paragraph"
	case BlockCode:
		return "code"
	default:
		return "other"
	}
}

// Block is a top-level node of a documentation string. Text is the heading
// or paragraph text, or the code body; it is empty for other blocks.
type Block struct {
	Kind BlockKind
	Text string
	Lang string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Lex splits documentation into its top-level blocks. Nested structure
// (list items, block quotes) is reported as a single other block.
func Lex(documentation string) []Block {
	source := []byte(documentation)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []Block
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = append(blocks, toBlock(node, source))
	}
	return blocks
}

func toBlock(node ast.Node, source []byte) Block {
	switch n := node.(type) {
	case *ast.Heading:
		return Block{Kind: BlockHeading, Text: strings.TrimSpace(lineText(n.Lines(), source))}
	case *ast.Paragraph:
		return Block{Kind: BlockParagraph, Text: strings.TrimSpace(lineText(n.Lines(), source))}
	case *ast.FencedCodeBlock:
		return Block{
			Kind: BlockCode,
			Text: strings.TrimRight(lineText(n.Lines(), source), "\n"),
			Lang: string(n.Language(source)),
		}
	case *ast.CodeBlock:
		return Block{Kind: BlockCode, Text: strings.TrimRight(lineText(n.Lines(), source), "\n")}
	default:
		return Block{Kind: BlockOther}
	}
}

func lineText(lines *text.Segments, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
