package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"chronicle/suggest/internal/config"
	"chronicle/suggest/internal/doc"
	"chronicle/suggest/internal/rbac"
	"chronicle/suggest/internal/store"
	"chronicle/suggest/internal/thread"
	"chronicle/suggest/internal/track"
)

// Service hosts the editing connections. Each editor gets its own
// mutex; the tracking engine underneath holds no lock, so the service
// funnels every entry point, including timer callbacks and thread
// back-patches, through that mutex.
type Service struct {
	cfg     config.Config
	threads thread.Service
	store   *store.PostgresStore // nil when no database is configured

	mu      sync.Mutex
	editors map[string]*editorSession
}

func NewService(cfg config.Config, threads thread.Service, st *store.PostgresStore) *Service {
	return &Service{
		cfg:     cfg,
		threads: threads,
		store:   st,
		editors: make(map[string]*editorSession),
	}
}

type editorSession struct {
	mu         sync.Mutex
	id         string
	documentID string
	userID     string
	role       rbac.Role
	ctrl       *track.Controller
}

// lockedScheduler makes the debounce timer callback run under the
// editor mutex, like every other entry into the engine.
type lockedScheduler struct {
	ed    *editorSession
	inner track.Scheduler
}

func (s lockedScheduler) Schedule(d time.Duration, fn func()) func() {
	return s.inner.Schedule(d, func() {
		s.ed.mu.Lock()
		defer s.ed.mu.Unlock()
		fn()
	})
}

type CreateEditorRequest struct {
	EditorID   string          `json:"editorId"`
	DocumentID string          `json:"documentId"`
	UserID     string          `json:"userId"`
	Role       string          `json:"role"`
	Doc        json.RawMessage `json:"doc"`
}

type EditorView struct {
	EditorID   string    `json:"editorId"`
	DocumentID string    `json:"documentId"`
	UserID     string    `json:"userId"`
	Role       rbac.Role `json:"role"`
	Tracking   bool      `json:"tracking"`
	Doc        *doc.Node `json:"doc"`
	Text       string    `json:"text"`
}

type SuggestionView struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	ThreadID    string    `json:"threadId"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Anchor      int       `json:"anchor"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateEditor opens an editing connection on a document. Roles that
// may write but not approve get a tracking session; everyone else
// edits the canonical document directly.
func (s *Service) CreateEditor(req CreateEditorRequest) (EditorView, error) {
	if req.EditorID == "" || req.DocumentID == "" || req.UserID == "" {
		return EditorView{}, badRequest("editorId, documentId and userId are required")
	}
	d, err := doc.Parse(req.Doc)
	if err != nil {
		return EditorView{}, badRequest("invalid document: " + err.Error())
	}
	role := rbac.Normalize(req.Role)

	ed := &editorSession{
		id:         req.EditorID,
		documentID: req.DocumentID,
		userID:     req.UserID,
		role:       role,
	}
	ed.ctrl = track.NewController(track.ControllerConfig{
		EditorID:      req.EditorID,
		AuthorID:      req.UserID,
		Tracking:      rbac.TracksChanges(role),
		Doc:           d,
		Threads:       s.threads,
		Debounce:      s.cfg.Debounce,
		Scheduler:     lockedScheduler{ed: ed, inner: track.TimerScheduler{}},
		ThreadTimeout: s.cfg.ThreadTimeout,
		Run: func(fn func()) {
			ed.mu.Lock()
			defer ed.mu.Unlock()
			fn()
		},
		OnSuggestion: func(sug track.Suggestion) {
			s.persistSuggestion(ed, sug)
		},
		OnThreadLink: func(suggestionID, threadID string) {
			s.persistThreadLink(suggestionID, threadID)
		},
		OnStatus: func(suggestionID string, status track.Status, reviewerID string) {
			s.persistStatus(suggestionID, status, reviewerID)
		},
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.editors[req.EditorID]; exists {
		return EditorView{}, conflict("editor " + req.EditorID + " already exists")
	}
	s.editors[req.EditorID] = ed
	return s.viewLocked(ed), nil
}

func (s *Service) editor(id string) (*editorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, ok := s.editors[id]
	if !ok {
		return nil, notFound("editor " + id + " not found")
	}
	return ed, nil
}

// viewLocked snapshots the editor; the caller holds ed.mu or the
// editor is not yet published.
func (s *Service) viewLocked(ed *editorSession) EditorView {
	d := ed.ctrl.Doc()
	return EditorView{
		EditorID:   ed.id,
		DocumentID: ed.documentID,
		UserID:     ed.userID,
		Role:       ed.role,
		Tracking:   ed.ctrl.Session() != nil,
		Doc:        d,
		Text:       d.PlainText(),
	}
}

// GetEditor returns the live document and connection metadata.
func (s *Service) GetEditor(id string) (EditorView, error) {
	ed, err := s.editor(id)
	if err != nil {
		return EditorView{}, err
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return s.viewLocked(ed), nil
}

// ApplySteps applies one batch. Origin "local" means this connection's
// user authored it; "remote" means it arrived from another client
// through sync.
func (s *Service) ApplySteps(id, origin string, inputs []StepInput) (EditorView, error) {
	ed, err := s.editor(id)
	if err != nil {
		return EditorView{}, err
	}
	steps, err := decodeSteps(inputs)
	if err != nil {
		return EditorView{}, err
	}
	if len(steps) == 0 {
		return EditorView{}, badRequest("batch has no steps")
	}

	ed.mu.Lock()
	defer ed.mu.Unlock()
	switch origin {
	case "", "local":
		if !rbac.Can(ed.role, rbac.ActionWrite) {
			return EditorView{}, forbidden("role " + string(ed.role) + " cannot edit")
		}
		_, err = ed.ctrl.ApplyLocal(steps)
	case "remote":
		_, err = ed.ctrl.ApplyRemote(steps)
	default:
		return EditorView{}, badRequest("unknown origin: " + origin)
	}
	if err != nil {
		return EditorView{}, badRequest(err.Error())
	}
	return s.viewLocked(ed), nil
}

// Flush fires the debounce now instead of waiting out the timer.
func (s *Service) Flush(id string) (EditorView, error) {
	ed, err := s.editor(id)
	if err != nil {
		return EditorView{}, err
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.ctrl.Flush()
	return s.viewLocked(ed), nil
}

// ListSuggestions lists this editor's suggestions in creation order.
func (s *Service) ListSuggestions(id string) ([]SuggestionView, error) {
	ed, err := s.editor(id)
	if err != nil {
		return nil, err
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	sugs := ed.ctrl.Suggestions()
	out := make([]SuggestionView, 0, len(sugs))
	for _, sug := range sugs {
		out = append(out, SuggestionView{
			ID:          sug.ID,
			AuthorID:    sug.AuthorID,
			ThreadID:    sug.ThreadID,
			Kind:        string(sug.Kind),
			Description: sug.Description,
			Status:      string(sug.Status),
			Anchor:      sug.Anchor,
			CreatedAt:   sug.CreatedAt,
		})
	}
	return out, nil
}

// Resolve accepts or rejects one pending suggestion on behalf of a
// reviewer.
func (s *Service) Resolve(id, suggestionID, action, reviewerID, reviewerRole string) (EditorView, error) {
	ed, err := s.editor(id)
	if err != nil {
		return EditorView{}, err
	}
	if !rbac.Can(rbac.Normalize(reviewerRole), rbac.ActionApprove) {
		return EditorView{}, forbidden("role " + reviewerRole + " cannot resolve suggestions")
	}

	ed.mu.Lock()
	defer ed.mu.Unlock()
	switch action {
	case "accept":
		err = ed.ctrl.Accept(suggestionID, reviewerID)
	case "reject":
		err = ed.ctrl.Reject(suggestionID, reviewerID)
	default:
		return EditorView{}, badRequest("unknown action: " + action)
	}
	switch err {
	case nil:
	case track.ErrSuggestionNotFound:
		return EditorView{}, notFound("suggestion " + suggestionID + " not found")
	case track.ErrSuggestionResolved:
		return EditorView{}, conflict("suggestion " + suggestionID + " is already resolved")
	default:
		return EditorView{}, badRequest(err.Error())
	}
	return s.viewLocked(ed), nil
}

// CloseEditor tears a connection down, discarding any burst in flight.
func (s *Service) CloseEditor(id string) error {
	s.mu.Lock()
	ed, ok := s.editors[id]
	if ok {
		delete(s.editors, id)
	}
	s.mu.Unlock()
	if !ok {
		return notFound("editor " + id + " not found")
	}
	ed.mu.Lock()
	ed.ctrl.Close()
	ed.mu.Unlock()
	ed.ctrl.WaitThreads()
	return nil
}

// Ping verifies the database when one is configured.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.DB().PingContext(ctx)
}

// The persistence hooks are best-effort: the suggestion log is an
// audit trail, not the source of truth, so a write failure is logged
// and editing continues.

func (s *Service) persistSuggestion(ed *editorSession, sug track.Suggestion) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.store.InsertSuggestion(ctx, store.SuggestionRow{
		ID:          sug.ID,
		EditorID:    ed.id,
		DocumentID:  ed.documentID,
		AuthorID:    sug.AuthorID,
		Kind:        string(sug.Kind),
		Description: sug.Description,
		Status:      string(sug.Status),
		ThreadID:    sug.ThreadID,
		Anchor:      sug.Anchor,
		CreatedAt:   sug.CreatedAt,
	})
	if err != nil {
		log.Printf("persist suggestion %s failed: %v", sug.ID, err)
	}
}

func (s *Service) persistThreadLink(suggestionID, threadID string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.LinkThread(ctx, suggestionID, threadID); err != nil {
		log.Printf("persist thread link for %s failed: %v", suggestionID, err)
	}
}

func (s *Service) persistStatus(suggestionID string, status track.Status, reviewerID string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.ResolveSuggestion(ctx, suggestionID, string(status), reviewerID); err != nil {
		log.Printf("persist status for %s failed: %v", suggestionID, err)
	}
}
