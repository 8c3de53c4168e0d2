package doc

import "testing"

func TestSameMarkSetIgnoresOrder(t *testing.T) {
	a := []Mark{{Type: "bold"}, {Type: "italic"}}
	b := []Mark{{Type: "italic"}, {Type: "bold"}}
	if !SameMarkSet(a, b) {
		t.Fatal("order should not matter")
	}
	if SameMarkSet(a, a[:1]) {
		t.Fatal("different lengths should differ")
	}
}

func TestWithoutSuggestionMarks(t *testing.T) {
	marks := []Mark{
		{Type: "bold"},
		{Type: MarkSuggestionInsert, Attrs: map[string]any{MarkAttrSuggestionID: "s1"}},
		{Type: MarkSuggestionDelete},
	}
	got := WithoutSuggestionMarks(marks)
	if len(got) != 1 || got[0].Type != "bold" {
		t.Fatalf("got %+v, want only bold", got)
	}
}

func TestStripSuggestionAttrs(t *testing.T) {
	attrs := map[string]any{
		"level":               2,
		AttrNodeSuggestionID:  "s1",
		AttrNodeSuggestionOldData: `{"type":"paragraph"}`,
	}
	got := StripSuggestionAttrs(attrs)
	if len(got) != 1 || got["level"] != 2 {
		t.Fatalf("got %v, want only level", got)
	}

	// Nothing left means nil, so attr-less nodes compare equal.
	only := map[string]any{AttrNodeSuggestionID: "s1"}
	if StripSuggestionAttrs(only) != nil {
		t.Fatal("expected nil when only bookkeeping attrs present")
	}
}
