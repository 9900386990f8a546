package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"sdgplan/collab/internal/docsink"
	"sdgplan/collab/internal/storage"
)

// ErrNoSink is returned when an external document is requested but no sink
// is configured.
var ErrNoSink = errors.New("no document sink configured")

// SyncGate decides when a form is pushed to its external document and
// performs the push.
type SyncGate struct {
	store storage.Store
	sink  docsink.Sink
	pool  *Pool
	now   func() time.Time
}

// NewSyncGate returns a gate; a nil sink disables every push.
func NewSyncGate(store storage.Store, sink docsink.Sink, pool *Pool) *SyncGate {
	return &SyncGate{store: store, sink: sink, pool: pool, now: time.Now}
}

// AfterUpdate pushes the form when it has a created link. Failures are only
// logged; the triggering update stands.
func (g *SyncGate) AfterUpdate(ctx context.Context, formID int64) {
	ok, err := g.push(ctx, formID, (*storage.SyncLink).Pushable)
	if err != nil {
		glog.Warningf("form %d: automatic sync failed: %v", formID, err)
		return
	}
	if ok {
		glog.V(1).Infof("form %d: synced after update", formID)
	}
}

// SyncNow pushes the form when it has any link with an external id. It
// reports false without error when there is nothing to push to.
func (g *SyncGate) SyncNow(ctx context.Context, formID int64) (bool, error) {
	return g.push(ctx, formID, func(l *storage.SyncLink) bool {
		return l != nil && l.ExternalID != ""
	})
}

func (g *SyncGate) push(ctx context.Context, formID int64, accept func(*storage.SyncLink) bool) (bool, error) {
	if g.sink == nil {
		return false, nil
	}
	var form storage.Form
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		form, err = g.store.GetForm(ctx, formID)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !accept(form.Link) {
		return false, nil
	}

	err = g.pool.Do(ctx, func(ctx context.Context) error {
		return g.sink.ReplaceContent(ctx, form.Link.ExternalID, form)
	})
	if err != nil {
		return false, err
	}
	err = g.pool.Do(ctx, func(ctx context.Context) error {
		return g.store.TouchSyncLink(ctx, formID, g.now())
	})
	if err != nil {
		glog.Warningf("form %d: pushed but failed to record sync time: %v", formID, err)
	}
	return true, nil
}

// CreateLink creates the external document for a form and stores the link
// as created. An existing created link is returned unchanged.
func (g *SyncGate) CreateLink(ctx context.Context, formID int64) (storage.SyncLink, error) {
	if g.sink == nil {
		return storage.SyncLink{}, ErrNoSink
	}
	var form storage.Form
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		form, err = g.store.GetForm(ctx, formID)
		return err
	})
	if err != nil {
		return storage.SyncLink{}, err
	}
	if form.Link.Pushable() {
		return *form.Link, nil
	}

	var id string
	err = g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		id, err = g.sink.CreateDocument(ctx, form)
		return err
	})
	if err != nil {
		return storage.SyncLink{}, fmt.Errorf("failed to create document for form %d: %w", formID, err)
	}
	now := g.now()
	link := storage.SyncLink{
		ExternalID:   id,
		URL:          g.sink.DocumentURL(id),
		Created:      true,
		LastSyncedAt: &now,
	}
	err = g.pool.Do(ctx, func(ctx context.Context) error {
		return g.store.SaveSyncLink(ctx, formID, link)
	})
	if err != nil {
		return storage.SyncLink{}, err
	}
	glog.Infof("form %d: linked to external document %s", formID, id)
	return link, nil
}
