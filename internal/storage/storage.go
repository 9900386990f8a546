package storage

import (
	"context"
	"time"
)

// Store is the persistence contract for action plan forms and their sync links.
type Store interface {
	// Init prepares the schema.
	Init(ctx context.Context) error

	Close() error

	// CreateForm inserts form and returns it with its assigned id and timestamps.
	CreateForm(ctx context.Context, form Form) (Form, error)

	// GetForm returns ErrNotFound for an unknown id.
	GetForm(ctx context.Context, id int64) (Form, error)

	// UpdateForm loads the form, passes it to mutate and writes the result back
	// in a single transaction. The row is locked for the duration where the
	// backend supports it. An error from mutate aborts the write.
	UpdateForm(ctx context.Context, id int64, mutate func(*Form) error) (Form, error)

	// SaveSyncLink stores or replaces the form's sync link.
	SaveSyncLink(ctx context.Context, id int64, link SyncLink) error

	// TouchSyncLink records a successful push at the given time.
	TouchSyncLink(ctx context.Context, id int64, at time.Time) error
}
