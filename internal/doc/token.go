package doc

import "fmt"

// The tree is edited by flattening it into a token stream, splicing the
// stream, and rebuilding. One token per document position: a block node
// contributes an open and a close token around its content, a text node
// contributes one token per rune. Rebuilding validates balance, so a
// splice that tears a block apart surfaces as an error instead of a
// corrupt tree.

type tokenKind int

const (
	tokenOpen tokenKind = iota
	tokenClose
	tokenChar
)

// Token is one position of a flattened document.
type Token struct {
	kind  tokenKind
	typ   string
	attrs map[string]any
	ch    rune
	marks []Mark
}

// OpenToken starts a block node of the given type.
func OpenToken(typ string, attrs map[string]any) Token {
	return Token{kind: tokenOpen, typ: typ, attrs: attrs}
}

// CloseToken ends the innermost open block node.
func CloseToken() Token {
	return Token{kind: tokenClose}
}

// TextTokens flattens a string into char tokens sharing one mark set.
func TextTokens(text string, marks []Mark) []Token {
	tokens := make([]Token, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, Token{kind: tokenChar, ch: r, marks: marks})
	}
	return tokens
}

// NodeTokens flattens a single node, including its own boundary tokens
// when it is a block.
func NodeTokens(n *Node) []Token {
	if n.IsText() {
		return TextTokens(n.Text, n.Marks)
	}
	tokens := make([]Token, 0, n.Size())
	tokens = append(tokens, OpenToken(n.Type, n.Attrs))
	for _, child := range n.Content {
		tokens = append(tokens, NodeTokens(child)...)
	}
	return append(tokens, CloseToken())
}

// Flatten turns the document root's content into a token stream. The
// root's own boundaries are not represented; position 0 is the open
// token of the first block.
func Flatten(d *Node) []Token {
	tokens := make([]Token, 0, d.ContentSize())
	for _, child := range d.Content {
		tokens = append(tokens, NodeTokens(child)...)
	}
	return tokens
}

type buildFrame struct {
	typ      string
	attrs    map[string]any
	children []*Node
	run      []rune
	runMarks []Mark
}

func (f *buildFrame) flushRun() {
	if len(f.run) == 0 {
		return
	}
	f.children = append(f.children, NewText(string(f.run), f.runMarks...))
	f.run = nil
	f.runMarks = nil
}

// Build reassembles a token stream into a document root. It fails on
// unbalanced boundaries or text outside any block, which is how a step
// that cannot replay against the tree is detected.
func Build(tokens []Token) (*Node, error) {
	root := &buildFrame{typ: TypeDoc}
	stack := []*buildFrame{root}

	for i, tok := range tokens {
		top := stack[len(stack)-1]
		switch tok.kind {
		case tokenOpen:
			top.flushRun()
			stack = append(stack, &buildFrame{typ: tok.typ, attrs: tok.attrs})
		case tokenClose:
			if len(stack) == 1 {
				return nil, fmt.Errorf("build document: unmatched close at position %d", i)
			}
			top.flushRun()
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, &Node{Type: top.typ, Attrs: top.attrs, Content: top.children})
		case tokenChar:
			if len(stack) == 1 {
				return nil, fmt.Errorf("build document: text outside block at position %d", i)
			}
			if len(top.run) > 0 && !SameMarkSet(top.runMarks, tok.marks) {
				top.flushRun()
			}
			if len(top.run) == 0 {
				top.runMarks = tok.marks
			}
			top.run = append(top.run, tok.ch)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("build document: %d unclosed blocks", len(stack)-1)
	}
	return &Node{Type: TypeDoc, Content: root.children}, nil
}
