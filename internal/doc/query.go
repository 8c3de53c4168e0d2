package doc

import (
	"fmt"
	"strings"
)

// TextRun is a contiguous span of text sharing one mark set, with its
// boundaries in document positions.
type TextRun struct {
	From  int
	To    int
	Text  string
	Marks []Mark
}

// TextBetween concatenates the text inside [from, to), skipping block
// boundaries.
func TextBetween(d *Node, from, to int) string {
	tokens := Flatten(d)
	from, to = clampRange(from, to, len(tokens))
	var b strings.Builder
	for i := from; i < to; i++ {
		if tokens[i].kind == tokenChar {
			b.WriteRune(tokens[i].ch)
		}
	}
	return b.String()
}

// RunsBetween returns the text runs overlapping [from, to), split
// wherever the mark set changes or a block boundary intervenes.
func RunsBetween(d *Node, from, to int) []TextRun {
	tokens := Flatten(d)
	from, to = clampRange(from, to, len(tokens))

	var runs []TextRun
	var current *TextRun
	for i := from; i < to; i++ {
		tok := tokens[i]
		if tok.kind != tokenChar {
			current = nil
			continue
		}
		if current == nil || !SameMarkSet(current.Marks, tok.marks) {
			runs = append(runs, TextRun{From: i, To: i, Marks: tok.marks})
			current = &runs[len(runs)-1]
		}
		current.Text += string(tok.ch)
		current.To = i + 1
	}
	return runs
}

func clampRange(from, to, size int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to > size {
		to = size
	}
	if to < from {
		to = from
	}
	return from, to
}

// WalkBlocks visits every block node in document order along with the
// position of its open boundary. Returning false from fn skips the
// node's children.
func WalkBlocks(d *Node, fn func(pos int, n *Node) bool) {
	walkBlocks(d.Content, 0, fn)
}

func walkBlocks(children []*Node, pos int, fn func(pos int, n *Node) bool) {
	for _, child := range children {
		if child.IsText() {
			pos += child.Size()
			continue
		}
		if fn(pos, child) {
			walkBlocks(child.Content, pos+1, fn)
		}
		pos += child.Size()
	}
}

// BlockAt returns the block node whose open boundary sits exactly at
// pos.
func BlockAt(d *Node, pos int) (*Node, error) {
	var found *Node
	WalkBlocks(d, func(p int, n *Node) bool {
		if p == pos {
			found = n
			return false
		}
		return p < pos
	})
	if found == nil {
		return nil, fmt.Errorf("no block at position %d", pos)
	}
	return found, nil
}
