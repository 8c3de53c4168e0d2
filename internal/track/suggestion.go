package track

import (
	"fmt"
	"time"

	"chronicle/suggest/internal/util"
)

// Status is a suggestion's lifecycle state. Terminal states are final;
// a suggestion never leaves accepted or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Suggestion is one reviewable, author-attributed proposed change.
type Suggestion struct {
	ID          string
	AuthorID    string
	ThreadID    string
	Kind        Kind
	Description string
	Status      Status
	Anchor      int
	CreatedAt   time.Time
}

// NewSuggestionID mints a suggestion id. Uniqueness comes from the
// construction, it is not enforced anywhere else.
func NewSuggestionID(now time.Time) string {
	return fmt.Sprintf("suggestion-%d-%s", now.UnixMilli(), util.RandomSuffix(6))
}

// PlaceholderThreadID is the thread id a suggestion carries until the
// discussion-thread service answers with a real one. A failed request
// leaves the placeholder in place permanently.
func PlaceholderThreadID(suggestionID string) string {
	return "temp-" + suggestionID
}
