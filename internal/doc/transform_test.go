package doc

import "testing"

// "The cat sat." inside one paragraph: the open token sits at 0, text
// occupies [1, 13), the close token at 13.
func catDoc() *Node {
	return NewDoc(NewBlock(TypeParagraph, nil, NewText("The cat sat.")))
}

func TestReplaceRangeText(t *testing.T) {
	d := catDoc()
	next, err := ReplaceRange(d, 5, 8, TextTokens("dog", nil))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := next.PlainText(); got != "The dog sat." {
		t.Fatalf("text = %q, want %q", got, "The dog sat.")
	}
	// Copy-on-write: the input document is untouched.
	if got := d.PlainText(); got != "The cat sat." {
		t.Fatalf("original mutated: %q", got)
	}
}

func TestReplaceRangeDelete(t *testing.T) {
	next, err := ReplaceRange(catDoc(), 4, 8, nil)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := next.PlainText(); got != "The sat." {
		t.Fatalf("text = %q, want %q", got, "The sat.")
	}
}

func TestReplaceRangeOutOfBounds(t *testing.T) {
	if _, err := ReplaceRange(catDoc(), 5, 99, nil); err == nil {
		t.Fatal("expected out of bounds error")
	}
	if _, err := ReplaceRange(catDoc(), -1, 3, nil); err == nil {
		t.Fatal("expected out of bounds error")
	}
}

func TestReplaceRangeTearingBlockFails(t *testing.T) {
	// Deleting just the close token leaves the paragraph unbalanced.
	if _, err := ReplaceRange(catDoc(), 13, 14, nil); err == nil {
		t.Fatal("expected rebuild failure for torn block")
	}
}

func TestAddRemoveMark(t *testing.T) {
	bold := Mark{Type: "bold"}
	marked, err := AddMark(catDoc(), 5, 8, bold)
	if err != nil {
		t.Fatalf("add mark: %v", err)
	}
	runs := RunsBetween(marked, 1, 13)
	if len(runs) != 3 {
		t.Fatalf("run count = %d, want 3", len(runs))
	}
	if _, ok := MarkOfType(runs[1].Marks, "bold"); !ok || runs[1].Text != "cat" {
		t.Fatalf("bold run = %+v", runs[1])
	}

	cleared, err := RemoveMark(marked, 5, 8, "bold")
	if err != nil {
		t.Fatalf("remove mark: %v", err)
	}
	if got := RunsBetween(cleared, 1, 13); len(got) != 1 {
		t.Fatalf("run count after removal = %d, want 1", len(got))
	}
}

func TestAddMarkReplacesSameType(t *testing.T) {
	yellow := Mark{Type: "highlight", Attrs: map[string]any{"color": "yellow"}}
	red := Mark{Type: "highlight", Attrs: map[string]any{"color": "red"}}

	d, err := AddMark(catDoc(), 5, 8, yellow)
	if err != nil {
		t.Fatalf("add mark: %v", err)
	}
	d, err = AddMark(d, 5, 8, red)
	if err != nil {
		t.Fatalf("add mark: %v", err)
	}
	runs := RunsBetween(d, 5, 8)
	if len(runs) != 1 || len(runs[0].Marks) != 1 {
		t.Fatalf("runs = %+v, want one run with one mark", runs)
	}
	if runs[0].Marks[0].Attrs["color"] != "red" {
		t.Fatalf("mark = %+v, want replaced color", runs[0].Marks[0])
	}
}

func TestSetBlockHeader(t *testing.T) {
	next, err := SetBlockHeader(catDoc(), 0, TypeHeading, map[string]any{"level": 1})
	if err != nil {
		t.Fatalf("set block header: %v", err)
	}
	if next.Content[0].Type != TypeHeading {
		t.Fatalf("block type = %q, want heading", next.Content[0].Type)
	}
	if got := next.PlainText(); got != "The cat sat." {
		t.Fatalf("content changed: %q", got)
	}

	if _, err := SetBlockHeader(catDoc(), 1, TypeHeading, nil); err == nil {
		t.Fatal("expected error for non-open position")
	}
}
