package handle

import (
	"context"
	"sync"

	"github.com/sharedcode/storeengine/reconcile"
)

// Checkpointer is the backing tree's checkpoint/close contract. Session, cursor and tree
// construction are out of scope for this package; a Handle only needs a hook to call at
// sync-and-close time, supplied by whatever owns the actual B-tree implementation.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
	Close(ctx context.Context) error
}

// Handle (DH) is one process's view of an open table at a given checkpoint. Its mu doubles as
// both the reader/writer lock the open-lock algorithm spins on and the guard for flags/config;
// refcnt is guarded separately by the owning Registry's schema lock.
type Handle struct {
	Name       string
	Checkpoint string

	mu     sync.RWMutex
	flags  Flag
	config string
	tree   Checkpointer

	refcnt int32

	rc *reconcile.Context
}

// Flags returns the handle's current flag bits. Callers must hold (at least) a read lock,
// which every handle returned by Registry.Get already does.
func (h *Handle) Flags() Flag { return h.flags }

// Config returns the table's opaque configuration string, resolved at open time.
func (h *Handle) Config() string { return h.config }

// Refcnt returns the handle's current reference count.
func (h *Handle) Refcnt() int32 { return h.refcnt }

// ReconcileContext returns the reconcile.Context bound to this handle, creating it via new on
// first use. Lifetime is bound to the Handle: the same Context is reused across every page
// reconciled against this table, so its overflow tracker carries over from one reconcile to
// the next. The cell builder's prefix-compression chain is reset at the start of every pass.
func (h *Handle) ReconcileContext(new func() *reconcile.Context) *reconcile.Context {
	if h.rc == nil {
		h.rc = new()
	}
	return h.rc
}

// Attrs returns a map-shaped view of the handle suitable for predicate.Evaluator.Match.
func (h *Handle) Attrs() map[string]any {
	return map[string]any{
		"name":       h.Name,
		"checkpoint": h.Checkpoint,
		"refcnt":     int64(h.refcnt),
		"open":       h.flags&Open != 0,
		"exclusive":  h.flags&Exclusive != 0,
		"lock_only":  h.flags&LockOnly != 0,
		"special":    h.flags.Special(),
	}
}
