// Package thread is the boundary to the discussion-thread
// collaborator. The engine requests one thread per suggestion,
// best-effort: a failed request is swallowed and the suggestion keeps
// its placeholder thread id.
package thread

import "context"

// Metadata travels with a thread-creation request so the thread
// service can attribute and anchor the discussion.
type Metadata struct {
	SuggestionID string `json:"suggestionId"`
	EditorID     string `json:"editorId"`
	AuthorID     string `json:"authorId"`
	Kind         string `json:"kind"`
}

// Service creates and annotates discussion threads.
type Service interface {
	// CreateThread opens a thread seeded with initialBody and returns
	// its id.
	CreateThread(ctx context.Context, initialBody string, meta Metadata) (string, error)
	// UpdateThreadMetadata patches fields on an existing thread.
	UpdateThreadMetadata(ctx context.Context, threadID string, fields map[string]any) error
}
