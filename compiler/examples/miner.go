// Package examples mines runnable example sources out of documentation prose.
//
// A heading or paragraph whose visible text ends in "::" marks the code
// blocks that directly follow it as an example. A heading always closes the
// current capture window, whatever its own marker state.
package examples

import "strings"

// Marker is the suffix that announces an example
const Marker = "::"

// Candidate is one mined example. Heading is the closest preceding heading,
// empty when there is none.
type Candidate struct {
	Heading string
	Source  string
}

// miner is the fold state over the block stream
type miner struct {
	candidates []Candidate
	source     []string
	heading    string
	capturing  bool
}

// Mine lexes documentation and returns its example candidates in document
// order.
func Mine(documentation string) []Candidate {
	return MineBlocks(Lex(documentation))
}

// MineBlocks folds an already lexed block stream
func MineBlocks(blocks []Block) []Candidate {
	m := &miner{}
	for _, b := range blocks {
		switch b.Kind {
		case BlockCode:
			m.code(b.Text)
		case BlockHeading:
			m.startSection(b.Text)
		case BlockParagraph:
			m.capturing = EndsWithMarker(b.Text)
		case BlockOther:
			m.capturing = false
		}
	}
	return m.flush()
}

// EndsWithMarker reports whether text visually ends with the example marker
func EndsWithMarker(text string) bool {
	return strings.HasSuffix(strings.TrimRight(text, " \t\r\n"), Marker)
}

func (m *miner) code(text string) {
	if m.capturing {
		m.source = append(m.source, text)
	}
}

func (m *miner) startSection(text string) {
	if len(m.source) > 0 {
		m.candidates = append(m.candidates, Candidate{
			Heading: m.heading,
			Source:  strings.Join(m.source, "\n\n"),
		})
	}
	m.source = nil
	m.heading = text
	m.capturing = EndsWithMarker(text)
}

func (m *miner) flush() []Candidate {
	if len(m.source) > 0 {
		m.candidates = append(m.candidates, Candidate{
			Heading: m.heading,
			Source:  strings.Join(m.source, "\n;\n"),
		})
		m.source = nil
	}
	return m.candidates
}
