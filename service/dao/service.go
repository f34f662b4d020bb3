package dao

import (
	"context"
)

// Service is the generic persistence contract shared by the session and
// escalation stores. Save has idempotent upsert semantics: saving the same id
// twice replaces the previous record atomically at record granularity.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
