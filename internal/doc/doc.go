// Package doc models the rich-text document tree: ordered block nodes
// holding leaf text nodes with marks. Documents are immutable; every
// mutation produces a new tree and never touches shared structure.
package doc

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mark is a formatting attribute applied to a contiguous text span.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is one node in the document tree. Block nodes have a type, attrs
// and ordered children; text nodes carry a string plus a set of marks.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Block node type names.
const (
	TypeDoc        = "doc"
	TypeParagraph  = "paragraph"
	TypeHeading    = "heading"
	TypeBulletList = "bulletList"
	TypeOrderedList = "orderedList"
	TypeListItem   = "listItem"
	TypeBlockquote = "blockquote"
	TypeCodeBlock  = "codeBlock"
	TypeTable      = "table"
	TypeText       = "text"
)

// NewDoc builds a document root from block nodes.
func NewDoc(blocks ...*Node) *Node {
	return &Node{Type: TypeDoc, Content: blocks}
}

// NewBlock builds a block node.
func NewBlock(typ string, attrs map[string]any, children ...*Node) *Node {
	return &Node{Type: typ, Attrs: attrs, Content: children}
}

// NewText builds a leaf text node.
func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: TypeText, Text: text, Marks: marks}
}

// IsText reports whether n is a leaf text node.
func (n *Node) IsText() bool {
	return n.Type == TypeText
}

// Size is the node's footprint in document positions: rune count for
// text nodes, content size plus the two boundary tokens for blocks.
func (n *Node) Size() int {
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	return 2 + n.ContentSize()
}

// ContentSize is the combined size of the node's children. For the doc
// root this is the size of the whole addressable document.
func (n *Node) ContentSize() int {
	total := 0
	for _, child := range n.Content {
		total += child.Size()
	}
	return total
}

// PlainText concatenates the text of every leaf under n, ignoring marks
// and block boundaries.
func (n *Node) PlainText() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	if n.IsText() {
		b.WriteString(n.Text)
		return
	}
	for _, child := range n.Content {
		child.appendText(b)
	}
}

// CloneAttrs copies an attrs map so callers can modify the copy.
func CloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Parse decodes a JSON document tree.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if n.Type != TypeDoc {
		return nil, fmt.Errorf("parse document: root type %q, want %q", n.Type, TypeDoc)
	}
	return &n, nil
}

// JSON encodes the document tree.
func (n *Node) JSON() ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
