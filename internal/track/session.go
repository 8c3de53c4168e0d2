package track

import (
	"time"

	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/edit"
)

// DefaultDebounce is how long a session waits after the last
// qualifying edit before materializing.
const DefaultDebounce = 1500 * time.Millisecond

// State is the session's resting state. Materializing is a transient
// action, not a state.
type State string

const (
	StateIdle         State = "idle"
	StateAccumulating State = "accumulating"
)

// Scheduler runs a function once after a delay and hands back a
// cancel. The debounce timer is the session's only timer; sessions
// never share one.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules on the runtime timer heap. The callback
// runs on its own goroutine; the session owner is responsible for
// serializing it against edits, the session itself holds no lock.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Session accumulates one author's change records across an edit
// burst and decides when to materialize. It is owned by the editor
// controller, constructed when editing begins and closed when it
// ends, and advanced only by that author's cooperatively delivered
// transactions.
type Session struct {
	authorID  string
	debounce  time.Duration
	scheduler Scheduler
	extractor Extractor

	// onFlush materializes the accumulated records against the given
	// baseline. Invoked at most once per burst, never with an empty
	// record list.
	onFlush func(baseline *doc.Node, records []Record)

	state       State
	baseline    *doc.Node
	pending     []Record
	cancelTimer func()
	isPending   bool
}

// SessionConfig configures a debounce session.
type SessionConfig struct {
	AuthorID      string
	Debounce      time.Duration
	Scheduler     Scheduler
	ExcludedMarks map[string]struct{}
	OnFlush       func(baseline *doc.Node, records []Record)
}

// NewSession builds an idle session. Callers must not create one for
// reviewers or owners; their edits apply untracked.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	excluded := cfg.ExcludedMarks
	if excluded == nil {
		excluded = DefaultExcludedMarks()
	}
	return &Session{
		authorID:  cfg.AuthorID,
		debounce:  cfg.Debounce,
		scheduler: cfg.Scheduler,
		extractor: Extractor{ExcludedMarks: excluded},
		onFlush:   cfg.OnFlush,
		state:     StateIdle,
	}
}

// State reports the session's resting state.
func (s *Session) State() State { return s.state }

// IsPending reports whether a burst is waiting on the debounce timer.
func (s *Session) IsPending() bool { return s.isPending }

// Pending exposes the accumulated records, newest merge last.
func (s *Session) Pending() []Record { return s.pending }

// Baseline is the document snapshot the pending records are measured
// against; nil while idle.
func (s *Session) Baseline() *doc.Node { return s.baseline }

// Observe feeds one applied batch into the state machine.
func (s *Session) Observe(b *edit.Batch) {
	switch {
	case b.Origin == edit.OriginRemote:
		// Remote edits never enter extraction or merging. Pending
		// records would be stale against the moved document, so an
		// interrupted burst is discarded rather than guessed at.
		if s.state == StateAccumulating {
			s.reset()
		}
		return
	case b.Origin.IsSystem():
		// Materialization and the thread-id back-patch advance the
		// baseline; accept/reject passes through untouched.
		if b.Origin == edit.OriginMaterialize || b.Origin == edit.OriginThreadLink {
			if s.state == StateAccumulating {
				s.reset()
			}
		}
		return
	}

	if b.AuthorID != s.authorID || !b.Changed() {
		return
	}

	excludedOnly := s.excludedMarksOnly(b)
	if s.state == StateIdle {
		if excludedOnly {
			// Advances the implicit baseline only: the next
			// qualifying batch snapshots its own pre-state.
			return
		}
		s.baseline = b.Before()
		s.state = StateAccumulating
		s.isPending = true
	} else {
		s.pending = RemapAll(s.pending, b.Mapping())
	}

	s.pending = AppendRecords(s.pending, s.extractor.Extract(b))

	if excludedOnly {
		// No record and no timer reset for a pure non-review mark.
		return
	}
	s.restartTimer()
}

func (s *Session) excludedMarksOnly(b *edit.Batch) bool {
	for _, step := range b.Steps {
		var markType string
		switch st := step.(type) {
		case edit.AddMarkStep:
			markType = st.Mark.Type
		case edit.RemoveMarkStep:
			markType = st.Mark.Type
		default:
			return false
		}
		if _, ok := s.extractor.ExcludedMarks[markType]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) restartTimer() {
	if s.cancelTimer != nil {
		s.cancelTimer()
	}
	s.cancelTimer = s.scheduler.Schedule(s.debounce, s.Flush)
}

// Flush fires the debounce: materialize everything accumulated and
// return to idle. An empty record set is a no-op beyond advancing the
// baseline.
func (s *Session) Flush() {
	if s.state != StateAccumulating {
		return
	}
	s.isPending = false
	baseline := s.baseline
	records := s.pending
	s.reset()
	if len(records) == 0 || s.onFlush == nil {
		return
	}
	s.onFlush(baseline, records)
}

// Close tears the session down, cancelling any outstanding timer. A
// burst in flight is discarded without materializing.
func (s *Session) Close() {
	s.reset()
}

func (s *Session) reset() {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	s.state = StateIdle
	s.baseline = nil
	s.pending = nil
	s.isPending = false
}
