package track

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
	"chronicle/suggest/internal/thread"
)

// Materializer turns accumulated change records into review-visible
// suggestion marks and node attributes on the live document, and
// requests one discussion thread per suggestion.
type Materializer struct {
	EditorID string
	Threads  thread.Service

	// Dispatch applies a system-tagged transaction to the live
	// document. The owner serializes calls.
	Dispatch func(origin edit.Origin, steps []edit.Step) (*edit.Batch, error)
	// CurrentDoc reads the live document at call time.
	CurrentDoc func() *doc.Node

	// Now and NewID exist so tests can pin timestamps and ids.
	Now   func() time.Time
	NewID func(now time.Time) string

	// Run executes the thread-creation completion handler on the
	// owner's loop, so the back-patch never races local edits.
	// Defaults to running inline.
	Run func(fn func())

	// OnSuggestion observes each created suggestion; OnThreadLink
	// observes a successful placeholder rewrite. Both optional.
	OnSuggestion func(Suggestion)
	OnThreadLink func(suggestionID, threadID string)

	// ThreadTimeout bounds each thread-creation request.
	ThreadTimeout time.Duration

	wg sync.WaitGroup
}

type positionedStep struct {
	pos  int
	step edit.Step
}

// Materialize mutates the live document so every record becomes a
// pending suggestion, one suggestion id per logical record, then
// fires the thread requests. Records must be in current-document
// coordinates.
func (m *Materializer) Materialize(authorID string, records []Record) ([]Suggestion, error) {
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	newID := NewSuggestionID
	if m.NewID != nil {
		newID = m.NewID
	}

	cur := m.CurrentDoc()
	var suggestions []Suggestion
	var markSteps []edit.Step
	var insertSteps []positionedStep

	for _, rec := range records {
		id := newID(now)
		insertMark := suggestionMark(doc.MarkSuggestionInsert, id, authorID, now)
		deleteMark := suggestionMark(doc.MarkSuggestionDelete, id, authorID, now)

		switch r := rec.(type) {
		case Insert:
			markSteps = append(markSteps, edit.AddMarkStep{From: r.From, To: r.To, Mark: insertMark})
		case Delete:
			// The live text is already gone; restore it as a marked,
			// reviewable span.
			insertSteps = append(insertSteps, positionedStep{r.From, edit.ReplaceRangeStep{
				From:   r.From,
				To:     r.From,
				Insert: doc.TextTokens(r.Text, []doc.Mark{deleteMark}),
			}})
		case Replace:
			markSteps = append(markSteps, edit.AddMarkStep{From: r.InsertFrom, To: r.InsertTo, Mark: insertMark})
			insertSteps = append(insertSteps, positionedStep{r.From, edit.ReplaceRangeStep{
				From:   r.From,
				To:     r.From,
				Insert: doc.TextTokens(r.OldText, []doc.Mark{deleteMark}),
			}})
		case Format:
			markSteps = append(markSteps, edit.AddMarkStep{From: r.From, To: r.To, Mark: insertMark})
			var tokens []doc.Token
			for _, run := range r.OldRuns {
				tokens = append(tokens, doc.TextTokens(run.Text, doc.AddToMarkSet(run.Marks, deleteMark))...)
			}
			insertSteps = append(insertSteps, positionedStep{r.From, edit.ReplaceRangeStep{
				From:   r.From,
				To:     r.From,
				Insert: tokens,
			}})
		case NodeFormat:
			node, err := doc.BlockAt(cur, r.Pos)
			if err != nil {
				continue
			}
			if node.HasNodeSuggestion() {
				// One pending structural suggestion per node.
				continue
			}
			attrs, err := nodeSuggestionAttrs(node, r, id, authorID, now)
			if err != nil {
				continue
			}
			markSteps = append(markSteps, edit.SetBlockStep{Pos: r.Pos, BlockType: node.Type, Attrs: attrs})
		default:
			continue
		}

		suggestions = append(suggestions, Suggestion{
			ID:          id,
			AuthorID:    authorID,
			ThreadID:    PlaceholderThreadID(id),
			Kind:        rec.Kind(),
			Description: DescribeRecord(rec),
			Status:      StatusPending,
			Anchor:      recordAnchor(rec),
			CreatedAt:   now,
		})
	}

	if len(suggestions) == 0 {
		return nil, nil
	}

	// Insertions shift everything after them, so marks and node
	// stamps go first and the compensating re-insertions run
	// bottom-to-top.
	sort.SliceStable(insertSteps, func(i, j int) bool { return insertSteps[i].pos > insertSteps[j].pos })
	steps := markSteps
	for _, ps := range insertSteps {
		steps = append(steps, ps.step)
	}

	if _, err := m.Dispatch(edit.OriginMaterialize, steps); err != nil {
		return nil, fmt.Errorf("materialize suggestions: %w", err)
	}

	for _, sug := range suggestions {
		if m.OnSuggestion != nil {
			m.OnSuggestion(sug)
		}
		m.requestThread(sug)
	}
	return suggestions, nil
}

func suggestionMark(markType, suggestionID, userID string, now time.Time) doc.Mark {
	return doc.Mark{Type: markType, Attrs: map[string]any{
		doc.MarkAttrSuggestionID:    suggestionID,
		doc.MarkAttrUserID:          userID,
		doc.MarkAttrCommentThreadID: PlaceholderThreadID(suggestionID),
		doc.MarkAttrTimestamp:       now.UnixMilli(),
	}}
}

func nodeSuggestionAttrs(node *doc.Node, r NodeFormat, suggestionID, userID string, now time.Time) (map[string]any, error) {
	oldData, err := json.Marshal(map[string]any{"type": r.OldType, "attrs": r.OldAttrs})
	if err != nil {
		return nil, fmt.Errorf("encode node snapshot: %w", err)
	}
	attrs := doc.CloneAttrs(node.Attrs)
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs[doc.AttrNodeSuggestionID] = suggestionID
	attrs[doc.AttrNodeSuggestionUserID] = userID
	attrs[doc.AttrNodeSuggestionThreadID] = PlaceholderThreadID(suggestionID)
	attrs[doc.AttrNodeSuggestionTimestamp] = now.UnixMilli()
	attrs[doc.AttrNodeSuggestionOldData] = string(oldData)
	return attrs, nil
}

// requestThread asks the thread collaborator for one discussion
// thread, fire-and-forget. On success the placeholder thread id is
// rewritten wherever the suggestion now lives; on failure the
// placeholder stays, permanently.
func (m *Materializer) requestThread(sug Suggestion) {
	if m.Threads == nil {
		return
	}
	timeout := m.ThreadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		threadID, err := m.Threads.CreateThread(ctx, sug.Description, thread.Metadata{
			SuggestionID: sug.ID,
			EditorID:     m.EditorID,
			AuthorID:     sug.AuthorID,
			Kind:         string(sug.Kind),
		})
		if err != nil {
			log.Printf("thread request for %s failed, keeping placeholder: %v", sug.ID, err)
			return
		}
		run := m.Run
		if run == nil {
			run = func(fn func()) { fn() }
		}
		run(func() {
			if err := m.linkThread(sug.ID, threadID); err != nil {
				log.Printf("thread link for %s failed: %v", sug.ID, err)
			}
		})
	}()
}

// linkThread rewrites the placeholder thread id to the real one. The
// suggestion is located by scanning for its id at patch time, never
// by a position cached when the request was issued: local edits may
// have moved it since.
func (m *Materializer) linkThread(suggestionID, threadID string) error {
	cur := m.CurrentDoc()
	var steps []edit.Step

	for _, run := range doc.RunsBetween(cur, 0, cur.ContentSize()) {
		for _, mark := range run.Marks {
			if !doc.IsSuggestionMark(mark.Type) {
				continue
			}
			if id, _ := mark.Attrs[doc.MarkAttrSuggestionID].(string); id != suggestionID {
				continue
			}
			attrs := doc.CloneAttrs(mark.Attrs)
			attrs[doc.MarkAttrCommentThreadID] = threadID
			steps = append(steps, edit.AddMarkStep{From: run.From, To: run.To, Mark: doc.Mark{Type: mark.Type, Attrs: attrs}})
		}
	}
	doc.WalkBlocks(cur, func(pos int, n *doc.Node) bool {
		if n.NodeSuggestionID() == suggestionID {
			attrs := doc.CloneAttrs(n.Attrs)
			attrs[doc.AttrNodeSuggestionThreadID] = threadID
			steps = append(steps, edit.SetBlockStep{Pos: pos, BlockType: n.Type, Attrs: attrs})
			return false
		}
		return true
	})

	if len(steps) == 0 {
		// The suggestion disappeared before the thread arrived.
		return nil
	}
	if _, err := m.Dispatch(edit.OriginThreadLink, steps); err != nil {
		return err
	}
	if m.OnThreadLink != nil {
		m.OnThreadLink(suggestionID, threadID)
	}
	return nil
}

// PatchThread pushes fields onto a suggestion's discussion thread,
// fire-and-forget like the creation request. A placeholder id means no
// thread exists to patch, so the call is skipped.
func (m *Materializer) PatchThread(suggestionID, threadID string, fields map[string]any) {
	if m.Threads == nil || threadID == "" || threadID == PlaceholderThreadID(suggestionID) {
		return
	}
	timeout := m.ThreadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := m.Threads.UpdateThreadMetadata(ctx, threadID, fields); err != nil {
			log.Printf("thread update for %s failed: %v", suggestionID, err)
		}
	}()
}

// Wait blocks until outstanding thread requests settle. Used by
// teardown and tests; the requests themselves never block editing.
func (m *Materializer) Wait() {
	m.wg.Wait()
}

// DescribeRecord renders the one-line summary a suggestion's
// discussion thread is seeded with.
func DescribeRecord(r Record) string {
	switch rec := r.(type) {
	case Insert:
		return fmt.Sprintf("Insert %q", rec.Text)
	case Delete:
		return fmt.Sprintf("Delete %q", rec.Text)
	case Replace:
		return fmt.Sprintf("Replace %q with %q", rec.OldText, rec.NewText)
	case Format:
		return rec.Description
	case NodeFormat:
		return rec.Description
	default:
		return "Change"
	}
}

func recordAnchor(r Record) int {
	switch rec := r.(type) {
	case Insert:
		return rec.From
	case Delete:
		return rec.From
	case Replace:
		return rec.InsertFrom
	case Format:
		return rec.From
	case NodeFormat:
		return rec.Pos
	default:
		return 0
	}
}
