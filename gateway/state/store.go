package state

import "context"

// Store is the persistence contract for workflow instances. Implementations
// must return ErrNotFound (possibly wrapped) when no instance matches.
type Store interface {
	Load(ctx context.Context, id string) (*Workflow, error)
	Save(ctx context.Context, w *Workflow) error
	FindByIdempotencyKey(ctx context.Context, key string) (*Workflow, error)
}
