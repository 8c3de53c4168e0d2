package track

import (
	"errors"
	"fmt"
	"log"
	"time"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
	"chronicle/suggest/internal/thread"
)

var (
	// ErrSuggestionNotFound means no suggestion with that id exists
	// on this editor.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrSuggestionResolved means the suggestion already reached a
	// terminal state; accepted and rejected are final.
	ErrSuggestionResolved = errors.New("suggestion already resolved")
)

// ControllerConfig wires up an editor controller.
type ControllerConfig struct {
	EditorID string
	AuthorID string
	// Tracking is false for reviewers and owners: their edits apply
	// untouched and no session ever exists.
	Tracking bool
	Doc      *doc.Node
	Threads  thread.Service

	Debounce      time.Duration
	Scheduler     Scheduler
	ExcludedMarks map[string]struct{}
	ThreadTimeout time.Duration

	// Run executes asynchronous completion handlers (the thread-id
	// back-patch) on the owner's loop. Defaults to running inline.
	Run func(fn func())

	Now   func() time.Time
	NewID func(now time.Time) string

	OnSuggestion func(Suggestion)
	OnThreadLink func(suggestionID, threadID string)
	OnStatus     func(suggestionID string, status Status, reviewerID string)
}

// Controller owns one editing connection: the live document, the
// author's debounce session when tracking applies, the materializer,
// and the suggestion registry. It holds no lock; the owner delivers
// every call, including scheduled timer callbacks, on one loop.
type Controller struct {
	cfg     ControllerConfig
	doc     *doc.Node
	session *Session
	mat     *Materializer

	suggestions map[string]*Suggestion
	order       []string
}

// NewController builds a controller around the given document.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		cfg:         cfg,
		doc:         cfg.Doc,
		suggestions: make(map[string]*Suggestion),
	}
	run := cfg.Run
	if run == nil {
		run = func(fn func()) { fn() }
	}
	c.mat = &Materializer{
		EditorID:      cfg.EditorID,
		Threads:       cfg.Threads,
		Dispatch:      c.applySystem,
		CurrentDoc:    func() *doc.Node { return c.doc },
		Now:           cfg.Now,
		NewID:         cfg.NewID,
		Run:           run,
		ThreadTimeout: cfg.ThreadTimeout,
		OnSuggestion: func(sug Suggestion) {
			copied := sug
			c.suggestions[sug.ID] = &copied
			c.order = append(c.order, sug.ID)
			if cfg.OnSuggestion != nil {
				cfg.OnSuggestion(sug)
			}
		},
		OnThreadLink: func(suggestionID, threadID string) {
			if sug, ok := c.suggestions[suggestionID]; ok {
				sug.ThreadID = threadID
			}
			if cfg.OnThreadLink != nil {
				cfg.OnThreadLink(suggestionID, threadID)
			}
		},
	}
	if cfg.Tracking {
		c.session = NewSession(SessionConfig{
			AuthorID:      cfg.AuthorID,
			Debounce:      cfg.Debounce,
			Scheduler:     cfg.Scheduler,
			ExcludedMarks: cfg.ExcludedMarks,
			OnFlush: func(_ *doc.Node, records []Record) {
				if _, err := c.mat.Materialize(cfg.AuthorID, records); err != nil {
					log.Printf("materialize for %s failed: %v", cfg.AuthorID, err)
				}
			},
		})
	}
	return c
}

// Doc is the live document.
func (c *Controller) Doc() *doc.Node { return c.doc }

// Session exposes the debounce session; nil when tracking is off.
func (c *Controller) Session() *Session { return c.session }

// ApplyLocal applies a batch authored on this connection.
func (c *Controller) ApplyLocal(steps []edit.Step) (*edit.Batch, error) {
	return c.apply(edit.OriginLocal, c.cfg.AuthorID, steps)
}

// ApplyRemote applies an already-synced batch from another client.
func (c *Controller) ApplyRemote(steps []edit.Step) (*edit.Batch, error) {
	return c.apply(edit.OriginRemote, "", steps)
}

func (c *Controller) applySystem(origin edit.Origin, steps []edit.Step) (*edit.Batch, error) {
	return c.apply(origin, c.cfg.AuthorID, steps)
}

func (c *Controller) apply(origin edit.Origin, authorID string, steps []edit.Step) (*edit.Batch, error) {
	b, err := edit.Apply(c.doc, origin, authorID, steps)
	if err != nil {
		// The document and any accumulated session state stay as
		// they were; no partial suggestion can surface.
		return nil, fmt.Errorf("apply %s batch: %w", origin, err)
	}
	c.doc = b.After()
	if c.session != nil {
		c.session.Observe(b)
	}
	return b, nil
}

// Suggestions lists suggestions in creation order.
func (c *Controller) Suggestions() []Suggestion {
	out := make([]Suggestion, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.suggestions[id])
	}
	return out
}

// Suggestion returns one suggestion by id.
func (c *Controller) Suggestion(id string) (Suggestion, error) {
	sug, ok := c.suggestions[id]
	if !ok {
		return Suggestion{}, ErrSuggestionNotFound
	}
	return *sug, nil
}

// Accept collapses a pending suggestion into its proposed content.
func (c *Controller) Accept(suggestionID, reviewerID string) error {
	return c.resolve(suggestionID, reviewerID, StatusAccepted)
}

// Reject restores the content the suggestion proposed to change.
func (c *Controller) Reject(suggestionID, reviewerID string) error {
	return c.resolve(suggestionID, reviewerID, StatusRejected)
}

func (c *Controller) resolve(suggestionID, reviewerID string, status Status) error {
	sug, ok := c.suggestions[suggestionID]
	if !ok {
		return ErrSuggestionNotFound
	}
	if sug.Status != StatusPending {
		return ErrSuggestionResolved
	}

	spans := collectSuggestion(c.doc, suggestionID)
	var steps []edit.Step
	if status == StatusAccepted {
		steps = acceptSteps(spans)
	} else {
		steps = rejectSteps(spans)
	}
	if len(steps) > 0 {
		if _, err := c.apply(edit.OriginAcceptReject, reviewerID, steps); err != nil {
			return err
		}
	}

	sug.Status = status
	// The discussion thread learns the verdict too, best-effort.
	c.mat.PatchThread(suggestionID, sug.ThreadID, map[string]any{
		"status":     string(status),
		"resolvedBy": reviewerID,
	})
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(suggestionID, status, reviewerID)
	}
	return nil
}

// Flush forces the debounce to fire now.
func (c *Controller) Flush() {
	if c.session != nil {
		c.session.Flush()
	}
}

// WaitThreads blocks until outstanding thread requests settle.
func (c *Controller) WaitThreads() {
	c.mat.Wait()
}

// Close tears the connection down: the timer is cancelled and a burst
// in flight is discarded without materializing.
func (c *Controller) Close() {
	if c.session != nil {
		c.session.Close()
	}
}
