package handle

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/catalog"
	"github.com/sharedcode/storeengine/predicate"
	"golang.org/x/sync/errgroup"
)

type key struct {
	name       string
	checkpoint string
}

// Registry is the process-wide data handle table: one schema lock (mu) guarding the
// name/checkpoint -> *Handle map and every refcnt, plus the catalog used to resolve a table's
// configuration and checkpoint root address on first open.
type Registry struct {
	mu       sync.Mutex
	handles  map[key]*Handle
	cat      catalog.Catalog
	metaName string // the metadata table's own name: excluded from Apply, closed last by DiscardAll
}

// NewRegistry returns an empty Registry resolving table configuration through cat. metaName
// names the table the registry itself uses to store its own schema, if any ("" if none).
func NewRegistry(cat catalog.Catalog, metaName string) *Registry {
	return &Registry{handles: make(map[key]*Handle), cat: cat, metaName: metaName}
}

func busyErr(h *Handle) error {
	return storeengine.Error{Code: storeengine.Busy, UserData: h.Name, Err: fmt.Errorf("handle %q is busy", h.Name)}
}

// Get resolves (and opens, if necessary) the handle for (name, checkpoint), honoring flags
// (Exclusive, LockOnly, and any Special* maintenance mode). It waits until access is granted:
// the exclusive attempt never blocks (it spins with runtime.Gosched), while reading the
// handle's flags and taking the shared read lock block for as long as another caller holds the
// handle exclusively. It fails fast with BUSY for an exclusive request against contended
// state, and returns ctx.Err() if ctx is canceled first.
func (r *Registry) Get(ctx context.Context, name, checkpoint string, flags Flag) (*Handle, error) {
	r.mu.Lock()
	k := key{name, checkpoint}
	h, existed := r.handles[k]
	if !existed {
		h = &Handle{Name: name, Checkpoint: checkpoint}
		r.handles[k] = h
	}
	r.mu.Unlock()

	got, err := r.acquire(ctx, h, flags)
	if err != nil && !existed {
		// The handle never reached OPEN: undo exactly the allocation that succeeded so a
		// retried Get doesn't inherit a permanently wedged placeholder.
		r.mu.Lock()
		if cur, present := r.handles[k]; present && cur == h && h.flags&Open == 0 {
			delete(r.handles, k)
		}
		r.mu.Unlock()
	}
	return got, err
}

// acquire implements the open-lock spin algorithm against an existing (possibly just-allocated)
// handle object:
//  1. a handle in a special maintenance mode refuses every non-exclusive caller with BUSY.
//  2. an OPEN handle and a non-exclusive caller take the read-lock fast path.
//  3. otherwise, attempt a non-blocking exclusive acquire; on success, (re)open the handle if
//     it was not already OPEN, then either keep EXCLUSIVE (exclusive caller) or downgrade and
//     loop back to the read-lock fast path (non-exclusive caller racing a fresh open).
//  4. a failed non-blocking exclusive acquire fails fast with BUSY for an exclusive caller.
//  5. otherwise, yield and retry.
func (r *Registry) acquire(ctx context.Context, h *Handle, flags Flag) (*Handle, error) {
	exclusive := flags&Exclusive != 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h.mu.RLock()
		special := h.flags.Special()
		open := h.flags&Open != 0
		h.mu.RUnlock()

		if !exclusive && special {
			return nil, busyErr(h)
		}

		if open && !exclusive {
			h.mu.RLock()
			if h.flags&Open != 0 {
				r.bumpRefcnt(h)
				return h, nil
			}
			h.mu.RUnlock()
			runtime.Gosched()
			continue
		}

		if h.mu.TryLock() {
			if h.flags&Open != 0 && !exclusive {
				h.mu.Unlock()
				continue
			}
			if h.flags&Open == 0 {
				if err := r.doOpen(ctx, h, flags); err != nil {
					h.mu.Unlock()
					return nil, err
				}
				h.flags |= Open
			}
			if exclusive {
				h.flags |= Exclusive
				r.bumpRefcnt(h)
				return h, nil
			}
			h.flags &^= Exclusive
			h.mu.Unlock()
			continue
		}

		if exclusive {
			return nil, busyErr(h)
		}
		runtime.Gosched()
	}
}

func (r *Registry) bumpRefcnt(h *Handle) {
	r.mu.Lock()
	h.refcnt++
	r.mu.Unlock()
}

// doOpen resolves a table's configuration from the catalog and records it on h. Called with
// h.mu held for writing.
func (r *Registry) doOpen(ctx context.Context, h *Handle, requested Flag) error {
	cfg, err := r.cat.MetadataRead(ctx, h.Name)
	if err != nil {
		if storeengine.IsCode(err, storeengine.NotFound) {
			return storeengine.Error{Code: storeengine.ENOENT, Err: err, UserData: h.Name}
		}
		return err
	}
	h.config = cfg
	h.flags |= requested & (LockOnly | specialMask)
	return nil
}

// Release decrements h's reference count and drops whichever lock mode the caller currently
// holds (exclusive vs. shared), inferred from h's own Exclusive flag -- valid because only the
// lock holder itself can ever see that bit set.
func (r *Registry) Release(h *Handle) {
	exclusive := h.flags&Exclusive != 0
	if exclusive {
		h.flags &^= Exclusive
	}
	r.releaseAs(h, exclusive)
}

// releaseAs drops the lock mode the caller already knows it holds, without consulting or
// changing h.flags. closeMatching uses it after sync-and-close, leaving the Exclusive bit set
// on the handle it has just unlinked.
func (r *Registry) releaseAs(h *Handle, exclusive bool) {
	r.mu.Lock()
	h.refcnt--
	r.mu.Unlock()
	if exclusive {
		h.mu.Unlock()
	} else {
		h.mu.RUnlock()
	}
}

// Apply invokes fn concurrently on every OPEN, non-exclusive, non-metadata handle whose
// attributes satisfy the compiled cfgExpr (an empty expression matches every eligible handle).
// It returns the first error any invocation returns, after all have completed.
func (r *Registry) Apply(ctx context.Context, cfgExpr string, fn func(ctx context.Context, h *Handle) error) error {
	ev, err := predicate.NewEvaluator(cfgExpr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	targets := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		targets = append(targets, h)
	}
	r.mu.Unlock()

	var eligible []*Handle
	for _, h := range targets {
		if !h.mu.TryRLock() {
			// Write-locked: held exclusively (or mid-open), so never eligible.
			continue
		}
		ok := h.flags&Open != 0 && h.flags&Exclusive == 0 && h.Name != r.metaName
		attrs := h.Attrs()
		h.mu.RUnlock()
		if !ok {
			continue
		}
		match, err := ev.Match(ctx, attrs)
		if err != nil {
			return err
		}
		if match {
			eligible = append(eligible, h)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range eligible {
		h := h
		g.Go(func() error { return fn(gctx, h) })
	}
	return g.Wait()
}

// CloseAll sync-and-closes every currently registered handle for name, acquiring each
// exclusively first and discarding it from the registry once closed.
func (r *Registry) CloseAll(ctx context.Context, name string) error {
	return r.closeMatching(ctx, func(k key) bool { return k.name == name })
}

// DiscardAll sync-and-closes every registered handle, non-metadata tables first and the
// metadata table last, since closing a user table may itself dirty the metadata tree.
func (r *Registry) DiscardAll(ctx context.Context) error {
	if err := r.closeMatching(ctx, func(k key) bool { return k.name != r.metaName }); err != nil {
		return err
	}
	// Closing user tables may have re-opened (and dirtied) the metadata handle; drain
	// anything that reappeared before finally closing the metadata table itself.
	if err := r.closeMatching(ctx, func(k key) bool { return k.name != r.metaName }); err != nil {
		return err
	}
	return r.closeMatching(ctx, func(k key) bool { return k.name == r.metaName })
}

func (r *Registry) closeMatching(ctx context.Context, match func(key) bool) error {
	r.mu.Lock()
	var keys []key
	for k := range r.handles {
		if match(k) {
			keys = append(keys, k)
		}
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.mu.Lock()
		h, ok := r.handles[k]
		r.mu.Unlock()
		if !ok {
			continue
		}

		hh, err := r.acquire(ctx, h, Exclusive)
		if err != nil {
			return err
		}
		if err := SyncAndClose(ctx, hh); err != nil {
			r.releaseAs(hh, true)
			return err
		}
		r.mu.Lock()
		delete(r.handles, k)
		r.mu.Unlock()
		r.releaseAs(hh, true)
	}
	return nil
}
