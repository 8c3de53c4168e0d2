package store

import "time"

// SuggestionRow is one persisted suggestion: written at
// materialization, patched when the discussion thread resolves, and
// finalized by accept/reject. Best-effort bookkeeping; the document
// itself is the source of truth.
type SuggestionRow struct {
	ID          string
	EditorID    string
	DocumentID  string
	AuthorID    string
	Kind        string
	Description string
	Status      string
	ThreadID    string
	Anchor      int
	CreatedAt   time.Time
	ResolvedBy  string
	ResolvedAt  *time.Time
}
