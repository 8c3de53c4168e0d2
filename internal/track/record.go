// Package track is the change-tracking engine: it watches a
// non-privileged author's edit batches, condenses them into semantic
// change records under a debounce window, materializes the records as
// reviewable suggestion marks and node attributes, and drives the
// accept/reject lifecycle that collapses a suggestion back into
// canonical content.
package track

import "chronicle/suggest/internal/doc"

// Kind enumerates the change record variants.
type Kind string

const (
	KindInsert     Kind = "insert"
	KindDelete     Kind = "delete"
	KindReplace    Kind = "replace"
	KindFormat     Kind = "format"
	KindNodeFormat Kind = "nodeFormat"
)

// Record is one semantic change, expressed in the coordinates of the
// document state it was recorded against.
type Record interface {
	Kind() Kind
}

// Insert is newly typed text occupying [From, To).
type Insert struct {
	From int
	To   int
	Text string
}

func (Insert) Kind() Kind { return KindInsert }

// Delete is removed text. The live document no longer contains it, so
// only the anchor position survives; From and To coincide there.
type Delete struct {
	From int
	To   int
	Text string
}

func (Delete) Kind() Kind { return KindDelete }

// Replace is deleted text substituted by new text. The new text
// occupies [InsertFrom, InsertTo); From is where the old text is
// restored for review, immediately after the new text.
type Replace struct {
	From       int
	InsertFrom int
	InsertTo   int
	OldText    string
	NewText    string
}

func (Replace) Kind() Kind { return KindReplace }

// Format is an inline formatting change over [From, To). OldRuns
// snapshots the span's text runs with their pre-change marks,
// suggestion marks excluded.
type Format struct {
	From        int
	To          int
	Text        string
	Description string
	OldRuns     []doc.TextRun
}

func (Format) Kind() Kind { return KindFormat }

// NodeFormat is a structural change to the block node opening at Pos.
type NodeFormat struct {
	Pos         int
	Description string
	OldType     string
	OldAttrs    map[string]any
}

func (NodeFormat) Kind() Kind { return KindNodeFormat }
