package thread

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Thread is the in-memory representation of one discussion thread.
type Thread struct {
	ID     string
	Body   string
	Meta   Metadata
	Fields map[string]any
}

// Memory is an in-process thread service, used when no Redis is
// configured and throughout the tests.
type Memory struct {
	mu      sync.Mutex
	threads map[string]*Thread

	// FailCreates makes every CreateThread call fail, for exercising
	// the best-effort linkage path.
	FailCreates bool
}

// NewMemory builds an empty in-memory thread service.
func NewMemory() *Memory {
	return &Memory{threads: make(map[string]*Thread)}
}

func (m *Memory) CreateThread(ctx context.Context, initialBody string, meta Metadata) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreates {
		return "", fmt.Errorf("thread service unavailable")
	}
	id := uuid.NewString()
	m.threads[id] = &Thread{ID: id, Body: initialBody, Meta: meta, Fields: map[string]any{}}
	return id, nil
}

func (m *Memory) UpdateThreadMetadata(ctx context.Context, threadID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	for k, v := range fields {
		t.Fields[k] = v
	}
	return nil
}

// Get returns a created thread, for assertions.
func (m *Memory) Get(threadID string) (Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return Thread{}, false
	}
	return *t, true
}

// Count reports how many threads were created.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}
