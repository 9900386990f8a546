package collab

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"sdgplan/collab/internal/storage"
)

// Applier writes a single field change into the stored form.
type Applier struct {
	store storage.Store
	pool  *Pool
}

func NewApplier(store storage.Store, pool *Pool) *Applier {
	return &Applier{store: store, pool: pool}
}

// Apply sets path to value on the form and persists it. It reports whether
// the write succeeded; failures are logged, never returned.
func (a *Applier) Apply(ctx context.Context, formID int64, path string, value any) bool {
	err := a.pool.Do(ctx, func(ctx context.Context) error {
		_, err := a.store.UpdateForm(ctx, formID, func(f *storage.Form) error {
			return f.SetField(path, value)
		})
		return err
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrNotFound):
		glog.Warningf("form %d: update of %q ignored: form does not exist", formID, path)
	default:
		glog.Warningf("form %d: failed to update %q: %v", formID, path, err)
	}
	return false
}
