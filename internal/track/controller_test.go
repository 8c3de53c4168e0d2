package track

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
	"chronicle/suggest/internal/thread"
)

type controllerEnv struct {
	ctrl    *Controller
	sched   *manualScheduler
	threads *thread.Memory
	queue   []func()
}

// runQueued drains the deferred thread back-patch handlers, standing in
// for the owner's loop.
func (env *controllerEnv) runQueued() {
	for _, fn := range env.queue {
		fn()
	}
	env.queue = nil
}

func newTestEnv(t *testing.T, d *doc.Node, tracking bool) *controllerEnv {
	t.Helper()
	env := &controllerEnv{
		sched:   &manualScheduler{},
		threads: thread.NewMemory(),
	}
	var seq int
	env.ctrl = NewController(ControllerConfig{
		EditorID:  "editor-1",
		AuthorID:  "user-1",
		Tracking:  tracking,
		Doc:       d,
		Threads:   env.threads,
		Scheduler: env.sched,
		Run:       func(fn func()) { env.queue = append(env.queue, fn) },
		Now:       func() time.Time { return time.UnixMilli(1724800000000) },
		NewID: func(now time.Time) string {
			seq++
			return fmt.Sprintf("suggestion-%d-%06d", now.UnixMilli(), seq)
		},
	})
	return env
}

func (env *controllerEnv) applyLocal(t *testing.T, steps ...edit.Step) {
	t.Helper()
	if _, err := env.ctrl.ApplyLocal(steps); err != nil {
		t.Fatalf("apply local: %v", err)
	}
}

// materialize fires the debounce and settles the thread requests.
func (env *controllerEnv) materialize(t *testing.T) {
	t.Helper()
	env.sched.fire()
	env.ctrl.WaitThreads()
	env.runQueued()
}

func TestReplaceSuggestionLifecycle(t *testing.T) {
	baseline := catDoc()
	env := newTestEnv(t, baseline, true)

	env.applyLocal(t, edit.ReplaceRangeStep{From: 5, To: 8, Insert: doc.TextTokens("dog", nil)})
	if got := env.ctrl.Doc().PlainText(); got != "The dog sat." {
		t.Fatalf("live doc = %q", got)
	}

	env.materialize(t)

	// New text first, restored old text right after it.
	if got := env.ctrl.Doc().PlainText(); got != "The dogcat sat." {
		t.Fatalf("materialized doc = %q", got)
	}
	sugs := env.ctrl.Suggestions()
	if len(sugs) != 1 {
		t.Fatalf("suggestion count = %d, want 1", len(sugs))
	}
	sug := sugs[0]
	if sug.Kind != KindReplace || sug.Status != StatusPending || sug.AuthorID != "user-1" {
		t.Fatalf("suggestion = %+v", sug)
	}
	if sug.Description != `Replace "cat" with "dog"` {
		t.Fatalf("description = %q", sug.Description)
	}

	// The new text carries the insert mark, the restored text the
	// delete mark, both pointing at the suggestion.
	runs := doc.RunsBetween(env.ctrl.Doc(), 0, env.ctrl.Doc().ContentSize())
	var sawInsert, sawDelete bool
	for _, run := range runs {
		if m, ok := doc.MarkOfType(run.Marks, doc.MarkSuggestionInsert); ok {
			sawInsert = true
			if run.Text != "dog" || m.Attrs[doc.MarkAttrSuggestionID] != sug.ID {
				t.Fatalf("insert run = %+v", run)
			}
		}
		if m, ok := doc.MarkOfType(run.Marks, doc.MarkSuggestionDelete); ok {
			sawDelete = true
			if run.Text != "cat" || m.Attrs[doc.MarkAttrSuggestionID] != sug.ID {
				t.Fatalf("delete run = %+v", run)
			}
		}
	}
	if !sawInsert || !sawDelete {
		t.Fatalf("missing suggestion spans: insert=%v delete=%v", sawInsert, sawDelete)
	}

	if err := env.ctrl.Accept(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := env.ctrl.Doc().PlainText(); got != "The dog sat." {
		t.Fatalf("accepted doc = %q", got)
	}
	// No suggestion residue survives the decision.
	for _, run := range doc.RunsBetween(env.ctrl.Doc(), 0, env.ctrl.Doc().ContentSize()) {
		if len(doc.WithoutSuggestionMarks(run.Marks)) != len(run.Marks) {
			t.Fatalf("suggestion mark left behind: %+v", run)
		}
	}

	got, err := env.ctrl.Suggestion(sug.ID)
	if err != nil {
		t.Fatalf("suggestion: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", got.Status)
	}
}

func TestRejectRestoresBaseline(t *testing.T) {
	baseline := catDoc()
	env := newTestEnv(t, baseline, true)

	env.applyLocal(t, edit.ReplaceRangeStep{From: 5, To: 8, Insert: doc.TextTokens("dog", nil)})
	env.materialize(t)

	sug := env.ctrl.Suggestions()[0]
	if err := env.ctrl.Reject(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !reflect.DeepEqual(env.ctrl.Doc(), baseline) {
		t.Fatalf("rejected doc = %q, want the untouched baseline", env.ctrl.Doc().PlainText())
	}
}

func TestFormatSuggestionLifecycle(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	env.applyLocal(t, edit.AddMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: "bold"}})
	env.materialize(t)

	if got := env.ctrl.Doc().PlainText(); got != "The catcat sat." {
		t.Fatalf("materialized doc = %q", got)
	}
	sugs := env.ctrl.Suggestions()
	if len(sugs) != 1 || sugs[0].Kind != KindFormat || sugs[0].Description != "Bold" {
		t.Fatalf("suggestions = %+v", sugs)
	}

	if err := env.ctrl.Accept(sugs[0].ID, "reviewer-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := env.ctrl.Doc().PlainText(); got != "The cat sat." {
		t.Fatalf("accepted doc = %q", got)
	}
	runs := doc.RunsBetween(env.ctrl.Doc(), 5, 8)
	if len(runs) != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	if _, ok := doc.MarkOfType(runs[0].Marks, "bold"); !ok {
		t.Fatal("accepted formatting lost")
	}
}

func TestFormatSuggestionRejectRestoresMarks(t *testing.T) {
	baseline := catDoc()
	env := newTestEnv(t, baseline, true)

	env.applyLocal(t, edit.AddMarkStep{From: 5, To: 8, Mark: doc.Mark{Type: "bold"}})
	env.materialize(t)

	sug := env.ctrl.Suggestions()[0]
	if err := env.ctrl.Reject(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !reflect.DeepEqual(env.ctrl.Doc(), baseline) {
		t.Fatalf("rejected doc differs from baseline: %q", env.ctrl.Doc().PlainText())
	}
}

func TestNodeFormatSuggestionLifecycle(t *testing.T) {
	baseline := catDoc()
	env := newTestEnv(t, baseline, true)

	heading := doc.NewBlock(doc.TypeHeading, map[string]any{"level": 1}, doc.NewText("The cat sat."))
	env.applyLocal(t, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(heading)})
	env.materialize(t)

	sugs := env.ctrl.Suggestions()
	if len(sugs) != 1 || sugs[0].Kind != KindNodeFormat || sugs[0].Description != "Heading 1" {
		t.Fatalf("suggestions = %+v", sugs)
	}
	block := env.ctrl.Doc().Content[0]
	if !block.HasNodeSuggestion() || block.NodeSuggestionID() != sugs[0].ID {
		t.Fatalf("block not stamped: %+v", block.Attrs)
	}

	if err := env.ctrl.Reject(sugs[0].ID, "reviewer-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !reflect.DeepEqual(env.ctrl.Doc(), baseline) {
		t.Fatalf("rejected doc differs from baseline: %+v", env.ctrl.Doc().Content[0])
	}
}

func TestNodeFormatAcceptKeepsNewShape(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	heading := doc.NewBlock(doc.TypeHeading, map[string]any{"level": 2}, doc.NewText("The cat sat."))
	env.applyLocal(t, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(heading)})
	env.materialize(t)

	sug := env.ctrl.Suggestions()[0]
	if err := env.ctrl.Accept(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	block := env.ctrl.Doc().Content[0]
	if block.Type != doc.TypeHeading || block.HasNodeSuggestion() {
		t.Fatalf("accepted block = %s attrs %v", block.Type, block.Attrs)
	}
	if block.Attrs["level"] != 2 {
		t.Fatalf("attrs = %v, want level kept", block.Attrs)
	}
}

func TestNodeFormatOnePendingPerBlock(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	heading := doc.NewBlock(doc.TypeHeading, map[string]any{"level": 1}, doc.NewText("The cat sat."))
	env.applyLocal(t, edit.ReplaceRangeStep{From: 0, To: 14, Insert: doc.NodeTokens(heading)})
	env.materialize(t)
	if len(env.ctrl.Suggestions()) != 1 {
		t.Fatalf("suggestions = %+v", env.ctrl.Suggestions())
	}

	// A second structural change on the already-stamped block does not
	// open a second suggestion.
	cur := env.ctrl.Doc().Content[0]
	changed := doc.NewBlock(doc.TypeHeading, doc.CloneAttrs(cur.Attrs), doc.NewText("The cat sat."))
	changed.Attrs["level"] = 3
	env.applyLocal(t, edit.ReplaceRangeStep{From: 0, To: env.ctrl.Doc().ContentSize(), Insert: doc.NodeTokens(changed)})
	env.materialize(t)

	if got := len(env.ctrl.Suggestions()); got != 1 {
		t.Fatalf("suggestion count = %d, want 1", got)
	}
}

func TestUntrackedEditorAppliesDirectly(t *testing.T) {
	env := newTestEnv(t, catDoc(), false)

	if env.ctrl.Session() != nil {
		t.Fatal("untracked controller must not own a session")
	}
	env.applyLocal(t, edit.ReplaceRangeStep{From: 5, To: 8, Insert: doc.TextTokens("dog", nil)})

	if got := env.ctrl.Doc().PlainText(); got != "The dog sat." {
		t.Fatalf("doc = %q", got)
	}
	if env.sched.scheduled != 0 {
		t.Fatal("untracked edit must not start a timer")
	}
	if len(env.ctrl.Suggestions()) != 0 {
		t.Fatal("untracked edit must not create suggestions")
	}
}

func TestThreadLinkBackPatch(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.sched.fire()
	env.ctrl.WaitThreads()

	sug := env.ctrl.Suggestions()[0]
	if sug.ThreadID != PlaceholderThreadID(sug.ID) {
		t.Fatalf("thread id = %q, want placeholder before back-patch", sug.ThreadID)
	}

	// Local edits move the suggestion before the back-patch runs; the
	// span is found by scanning for its id, not by a stale position.
	env.applyLocal(t, edit.ReplaceRangeStep{From: 1, To: 1, Insert: doc.TextTokens(">> ", nil)})
	env.runQueued()

	sug, err := env.ctrl.Suggestion(sug.ID)
	if err != nil {
		t.Fatalf("suggestion: %v", err)
	}
	if sug.ThreadID == PlaceholderThreadID(sug.ID) || sug.ThreadID == "" {
		t.Fatalf("thread id = %q, want real id after back-patch", sug.ThreadID)
	}
	if _, ok := env.threads.Get(sug.ThreadID); !ok {
		t.Fatalf("thread %q was never created", sug.ThreadID)
	}

	var patched bool
	for _, run := range doc.RunsBetween(env.ctrl.Doc(), 0, env.ctrl.Doc().ContentSize()) {
		if m, ok := doc.MarkOfType(run.Marks, doc.MarkSuggestionInsert); ok {
			if m.Attrs[doc.MarkAttrCommentThreadID] == sug.ThreadID {
				patched = true
			}
		}
	}
	if !patched {
		t.Fatal("mark still carries the placeholder thread id")
	}
}

func TestThreadFailureKeepsPlaceholder(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)
	env.threads.FailCreates = true

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.materialize(t)

	sug := env.ctrl.Suggestions()[0]
	if sug.ThreadID != PlaceholderThreadID(sug.ID) {
		t.Fatalf("thread id = %q, want placeholder kept on failure", sug.ThreadID)
	}
	if env.threads.Count() != 0 {
		t.Fatal("no thread should exist")
	}
}

func TestResolveErrors(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	if err := env.ctrl.Accept("missing", "reviewer-1"); err != ErrSuggestionNotFound {
		t.Fatalf("err = %v, want ErrSuggestionNotFound", err)
	}

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.materialize(t)
	sug := env.ctrl.Suggestions()[0]

	if err := env.ctrl.Accept(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// Terminal states are final, in either direction.
	if err := env.ctrl.Reject(sug.ID, "reviewer-1"); err != ErrSuggestionResolved {
		t.Fatalf("err = %v, want ErrSuggestionResolved", err)
	}
	if err := env.ctrl.Accept(sug.ID, "reviewer-1"); err != ErrSuggestionResolved {
		t.Fatalf("err = %v, want ErrSuggestionResolved", err)
	}
}

func TestStatusCallbackOnResolve(t *testing.T) {
	var gotID string
	var gotStatus Status
	var gotReviewer string

	env := &controllerEnv{sched: &manualScheduler{}, threads: thread.NewMemory()}
	env.ctrl = NewController(ControllerConfig{
		EditorID:  "editor-1",
		AuthorID:  "user-1",
		Tracking:  true,
		Doc:       catDoc(),
		Threads:   env.threads,
		Scheduler: env.sched,
		Run:       func(fn func()) { env.queue = append(env.queue, fn) },
		OnStatus: func(suggestionID string, status Status, reviewerID string) {
			gotID, gotStatus, gotReviewer = suggestionID, status, reviewerID
		},
	})

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.materialize(t)
	sug := env.ctrl.Suggestions()[0]

	if err := env.ctrl.Reject(sug.ID, "reviewer-9"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if gotID != sug.ID || gotStatus != StatusRejected || gotReviewer != "reviewer-9" {
		t.Fatalf("callback = (%s, %s, %s)", gotID, gotStatus, gotReviewer)
	}
}

func TestResolvePatchesThreadStatus(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.materialize(t)
	sug := env.ctrl.Suggestions()[0]
	if sug.ThreadID == PlaceholderThreadID(sug.ID) {
		t.Fatalf("thread id = %q, want real thread", sug.ThreadID)
	}

	if err := env.ctrl.Accept(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	env.ctrl.WaitThreads()

	thr, ok := env.threads.Get(sug.ThreadID)
	if !ok {
		t.Fatalf("thread %s not found", sug.ThreadID)
	}
	if thr.Fields["status"] != "accepted" || thr.Fields["resolvedBy"] != "reviewer-1" {
		t.Fatalf("thread fields = %v", thr.Fields)
	}
}

func TestResolveSkipsPlaceholderThread(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)
	env.threads.FailCreates = true

	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.materialize(t)
	sug := env.ctrl.Suggestions()[0]

	if err := env.ctrl.Reject(sug.ID, "reviewer-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	env.ctrl.WaitThreads()

	// No thread was ever created, so there is nothing to patch.
	if env.threads.Count() != 0 {
		t.Fatal("no thread should exist")
	}
}

func TestEmptyFlushIsNoOp(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)
	env.ctrl.Flush()
	if len(env.ctrl.Suggestions()) != 0 {
		t.Fatal("flush with nothing pending created suggestions")
	}
	if env.threads.Count() != 0 {
		t.Fatal("flush with nothing pending created threads")
	}
}

func TestCloseDiscardsBurst(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)
	env.applyLocal(t, edit.ReplaceRangeStep{From: 8, To: 8, Insert: doc.TextTokens("big ", nil)})
	env.ctrl.Close()

	env.sched.fire()
	if len(env.ctrl.Suggestions()) != 0 {
		t.Fatal("closed controller must not materialize")
	}
}

func TestRemoteBatchDiscardsOpenBurst(t *testing.T) {
	env := newTestEnv(t, catDoc(), true)
	env.applyLocal(t, edit.ReplaceRangeStep{From: 5, To: 5, Insert: doc.TextTokens("big ", nil)})

	if _, err := env.ctrl.ApplyRemote([]edit.Step{
		edit.ReplaceRangeStep{From: 1, To: 1, Insert: doc.TextTokens("R", nil)},
	}); err != nil {
		t.Fatalf("apply remote: %v", err)
	}

	env.sched.fire()
	if len(env.ctrl.Suggestions()) != 0 {
		t.Fatal("interrupted burst must not materialize")
	}
	// The remote content itself stays.
	if got := env.ctrl.Doc().PlainText(); got != "RThe big cat sat." {
		t.Fatalf("doc = %q", got)
	}
}
