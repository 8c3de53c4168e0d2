package doc

import "fmt"

// ReplaceRange replaces the token range [from, to) with the inserted
// tokens and returns the rebuilt document. The receiver is untouched.
func ReplaceRange(d *Node, from, to int, insert []Token) (*Node, error) {
	size := d.ContentSize()
	if from < 0 || to < from || to > size {
		return nil, fmt.Errorf("replace range [%d, %d) out of bounds (size %d)", from, to, size)
	}
	tokens := Flatten(d)
	out := make([]Token, 0, len(tokens)-(to-from)+len(insert))
	out = append(out, tokens[:from]...)
	out = append(out, insert...)
	out = append(out, tokens[to:]...)
	return Build(out)
}

// AddMark applies a mark to every text position in [from, to),
// replacing any existing mark of the same type on the way.
func AddMark(d *Node, from, to int, m Mark) (*Node, error) {
	return mapMarks(d, from, to, func(marks []Mark) []Mark {
		return AddToMarkSet(marks, m)
	})
}

// RemoveMark strips marks of the given type from every text position
// in [from, to).
func RemoveMark(d *Node, from, to int, typ string) (*Node, error) {
	return mapMarks(d, from, to, func(marks []Mark) []Mark {
		return RemoveFromMarkSet(marks, typ)
	})
}

func mapMarks(d *Node, from, to int, fn func([]Mark) []Mark) (*Node, error) {
	size := d.ContentSize()
	if from < 0 || to < from || to > size {
		return nil, fmt.Errorf("mark range [%d, %d) out of bounds (size %d)", from, to, size)
	}
	tokens := Flatten(d)
	for i := from; i < to; i++ {
		if tokens[i].kind == tokenChar {
			tokens[i].marks = fn(tokens[i].marks)
		}
	}
	return Build(tokens)
}

// SetBlockHeader replaces the type and attrs of the block node whose
// open boundary sits at pos, keeping its content.
func SetBlockHeader(d *Node, pos int, typ string, attrs map[string]any) (*Node, error) {
	tokens := Flatten(d)
	if pos < 0 || pos >= len(tokens) || tokens[pos].kind != tokenOpen {
		return nil, fmt.Errorf("no block starts at position %d", pos)
	}
	tokens[pos].typ = typ
	tokens[pos].attrs = attrs
	return Build(tokens)
}
