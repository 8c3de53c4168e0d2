package track

import (
	"reflect"
	"testing"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
)

func catDoc() *doc.Node {
	return doc.NewDoc(doc.NewBlock(doc.TypeParagraph, nil, doc.NewText("The cat sat.")))
}

func newExtractor() *Extractor {
	return &Extractor{ExcludedMarks: DefaultExcludedMarks()}
}

func mustApply(t *testing.T, d *doc.Node, steps ...edit.Step) *edit.Batch {
	t.Helper()
	b, err := edit.Apply(d, edit.OriginLocal, "user-1", steps)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return b
}

func TestExtractInsert(t *testing.T) {
	b := mustApply(t, catDoc(), edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	want := Insert{From: 8, To: 12, Text: "big "}
	if records[0] != want {
		t.Fatalf("record = %+v, want %+v", records[0], want)
	}
}

func TestExtractDelete(t *testing.T) {
	b := mustApply(t, catDoc(), edit.ReplaceRangeStep{From: 4, To: 8})
	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	want := Delete{From: 4, To: 4, Text: " cat"}
	if records[0] != want {
		t.Fatalf("record = %+v, want %+v", records[0], want)
	}
}

func TestExtractReplace(t *testing.T) {
	b := mustApply(t, catDoc(), edit.ReplaceRangeStep{From: 5, To: 8, Insert: doc.TextTokens("dog", nil)})
	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	want := Replace{From: 8, InsertFrom: 5, InsertTo: 8, OldText: "cat", NewText: "dog"}
	if records[0] != want {
		t.Fatalf("record = %+v, want %+v", records[0], want)
	}
}

func TestExtractIdenticalReplaceYieldsNothing(t *testing.T) {
	b := mustApply(t, catDoc(), edit.ReplaceRangeStep{From: 5, To: 8, Insert: doc.TextTokens("cat", nil)})
	if records := newExtractor().Extract(b); len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
}

func TestExtractFormat(t *testing.T) {
	b := mustApply(t, catDoc(), edit.AddMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: "bold"}})
	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	rec, ok := records[0].(Format)
	if !ok {
		t.Fatalf("record = %T, want Format", records[0])
	}
	if rec.From != 5 || rec.To != 8 || rec.Text != "cat" || rec.Description != "Bold" {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.OldRuns) != 1 || rec.OldRuns[0].Text != "cat" || len(rec.OldRuns[0].Marks) != 0 {
		t.Fatalf("old runs = %+v", rec.OldRuns)
	}
}

func TestExtractRemoveMark(t *testing.T) {
	d, err := doc.AddMark(catDoc(), 5, 8, doc.Mark{Type: "italic"})
	if err != nil {
		t.Fatalf("add mark: %v", err)
	}
	b := mustApply(t, d, edit.RemoveMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: "italic"}})
	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	rec := records[0].(Format)
	if rec.Description != "Remove Italic" {
		t.Fatalf("description = %q", rec.Description)
	}
	// The old runs keep the pre-change italic mark.
	if len(rec.OldRuns) != 1 || len(rec.OldRuns[0].Marks) != 1 || rec.OldRuns[0].Marks[0].Type != "italic" {
		t.Fatalf("old runs = %+v", rec.OldRuns)
	}
}

func TestExtractExcludedMarkYieldsNothing(t *testing.T) {
	b := mustApply(t, catDoc(), edit.AddMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: "comment"}})
	if records := newExtractor().Extract(b); len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
}

func TestExtractSuggestionMarkYieldsNothing(t *testing.T) {
	b := mustApply(t, catDoc(), edit.AddMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: doc.MarkSuggestionInsert}})
	if records := newExtractor().Extract(b); len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
}

func TestExtractNodeFormat(t *testing.T) {
	d := catDoc()
	heading := doc.NewBlock(doc.TypeHeading, map[string]any{"level": 1}, doc.NewText("The cat sat."))
	b := mustApply(t, d, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(heading)})

	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	rec, ok := records[0].(NodeFormat)
	if !ok {
		t.Fatalf("record = %T, want NodeFormat", records[0])
	}
	if rec.Pos != 0 || rec.Description != "Heading 1" || rec.OldType != doc.TypeParagraph {
		t.Fatalf("record = %+v", rec)
	}
	if rec.OldAttrs != nil {
		t.Fatalf("old attrs = %v, want nil", rec.OldAttrs)
	}
}

func TestExtractNodeFormatOnePerBlock(t *testing.T) {
	// Wrapping a paragraph in a blockquote changes the outer structure;
	// the paragraph inside is unchanged and the wrap reports once.
	d := catDoc()
	quoted := doc.NewBlock(doc.TypeBlockquote, nil,
		doc.NewBlock(doc.TypeParagraph, nil, doc.NewText("The cat sat.")),
	)
	b := mustApply(t, d, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(quoted)})

	records := newExtractor().Extract(b)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1, got %+v", len(records), records)
	}
	rec := records[0].(NodeFormat)
	if rec.Pos != 0 || rec.OldType != doc.TypeParagraph {
		t.Fatalf("record = %+v", rec)
	}
}

func TestExtractRecordsInFinalCoordinates(t *testing.T) {
	// Two inserts in one batch: the first record's range is expressed
	// in the document state after both steps.
	b := mustApply(t, catDoc(),
		edit.ReplaceRangeStep{From: 12, To: 12, Insert: doc.TextTokens("!", nil)},
		edit.ReplaceRangeStep{From: 1, To: 1, Insert: doc.TextTokens(">> ", nil)},
	)
	records := newExtractor().Extract(b)
	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	first := records[0].(Insert)
	if first.From != 15 || first.To != 16 || first.Text != "!" {
		t.Fatalf("first record = %+v", first)
	}
	second := records[1].(Insert)
	if second.From != 1 || second.To != 4 {
		t.Fatalf("second record = %+v", second)
	}
}

func TestExtractIdenticalRestructureYieldsNothing(t *testing.T) {
	// Rebuilding a block into an identical one is not a change.
	pre := catDoc()
	same := doc.NewBlock(doc.TypeParagraph, nil, doc.NewText("The cat sat."))
	b := mustApply(t, pre, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(same)})
	if records := newExtractor().Extract(b); len(records) != 0 {
		t.Fatalf("records = %+v, want none", records)
	}
	if !reflect.DeepEqual(b.Before(), b.After()) {
		t.Fatal("documents should be structurally identical")
	}
}
