// Package store persists content records.
package store

import (
	"context"
	"errors"

	"story-shorts/internal/types"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("store: record not found")
	// ErrInvalidTransition is returned when a status change would move a
	// record backwards or to an unknown status.
	ErrInvalidTransition = errors.New("store: invalid status transition")
	// ErrStore wraps backend failures.
	ErrStore = errors.New("store: backend error")
)

// Store is the content record repository.
type Store interface {
	Create(ctx context.Context, rec *types.ContentRecord) error
	Update(ctx context.Context, rec *types.ContentRecord) error
	List(ctx context.Context) ([]*types.ContentRecord, error)
	GetByID(ctx context.Context, id string) (*types.ContentRecord, error)
	UpdateStatus(ctx context.Context, id string, status types.Status) error
	Delete(ctx context.Context, id string) error
}
