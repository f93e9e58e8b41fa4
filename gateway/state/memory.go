package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used in tests and in store-less runs
// (no DSN configured). Instances vanish on restart, which matches the
// original caller-held design; the Postgres store is the durable option.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*Workflow
	byKey map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*Workflow),
		byKey: make(map[string]string),
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Workflow, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidWorkflowID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", ErrNotFound, id)
	}
	return cloneWorkflow(w), nil
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	w, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneWorkflow(w), nil
}

func (s *MemoryStore) Save(_ context.Context, w *Workflow) error {
	if w == nil {
		return ErrNilWorkflow
	}
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[w.ID] = cloneWorkflow(w)
	if w.IdempotencyKey != "" {
		s.byKey[w.IdempotencyKey] = w.ID
	}
	return nil
}

func cloneWorkflow(w *Workflow) *Workflow {
	cp := *w
	if w.VerifiedAt != nil {
		ts := *w.VerifiedAt
		cp.VerifiedAt = &ts
	}
	return &cp
}
