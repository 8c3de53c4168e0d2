package doc

import "reflect"

// Reserved mark types used for suggestion bookkeeping. Spans carrying
// these marks are pending review and are excluded from ordinary
// formatting comparisons.
const (
	MarkSuggestionInsert = "suggestionInsert"
	MarkSuggestionDelete = "suggestionDelete"
)

// Inline mark attribute keys shared by both suggestion mark types.
const (
	MarkAttrSuggestionID    = "suggestionId"
	MarkAttrUserID          = "userId"
	MarkAttrCommentThreadID = "commentThreadId"
	MarkAttrTimestamp       = "timestamp"
)

// IsSuggestionMark reports whether the mark type is reserved for
// suggestion bookkeeping.
func IsSuggestionMark(typ string) bool {
	return typ == MarkSuggestionInsert || typ == MarkSuggestionDelete
}

// SameMark compares two marks by type and attrs.
func SameMark(a, b Mark) bool {
	if a.Type != b.Type {
		return false
	}
	if len(a.Attrs) == 0 && len(b.Attrs) == 0 {
		return true
	}
	return reflect.DeepEqual(a.Attrs, b.Attrs)
}

// SameMarkSet compares two mark sets irrespective of order.
func SameMarkSet(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		found := false
		for _, other := range b {
			if SameMark(m, other) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AddToMarkSet returns marks with m added, replacing any existing mark
// of the same type. The input slice is never modified.
func AddToMarkSet(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	for _, existing := range marks {
		if existing.Type != m.Type {
			out = append(out, existing)
		}
	}
	return append(out, m)
}

// RemoveFromMarkSet returns marks with every mark of the given type
// removed. The input slice is never modified.
func RemoveFromMarkSet(marks []Mark, typ string) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m.Type != typ {
			out = append(out, m)
		}
	}
	return out
}

// MarkOfType returns the mark of the given type, if present.
func MarkOfType(marks []Mark, typ string) (Mark, bool) {
	for _, m := range marks {
		if m.Type == typ {
			return m, true
		}
	}
	return Mark{}, false
}

// WithoutSuggestionMarks strips suggestion bookkeeping marks, leaving
// the span's ordinary formatting.
func WithoutSuggestionMarks(marks []Mark) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if !IsSuggestionMark(m.Type) {
			out = append(out, m)
		}
	}
	return out
}
