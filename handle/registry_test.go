package handle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/catalog"
)

type fakeTree struct {
	mu           sync.Mutex
	checkpoints  int
	closed       bool
	checkpointErr error
}

func (f *fakeTree) Checkpoint(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpoints++
	return f.checkpointErr
}

func (f *fakeTree) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestRegistry(t *testing.T, tables ...string) (*Registry, *catalog.MemCatalog) {
	t.Helper()
	cat := catalog.NewMemCatalog()
	for _, tbl := range tables {
		cat.RegisterTable(tbl, `{"PageSize":4096}`)
	}
	return NewRegistry(cat, "metadata"), cat
}

func TestGetOpensAndSharesNonExclusive(t *testing.T) {
	r, _ := newTestRegistry(t, "orders")
	ctx := context.Background()

	h1, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get #1: %v", err)
	}
	if h1.Flags()&Open == 0 {
		t.Fatalf("expected handle to be OPEN after first Get")
	}
	if h1.Refcnt() != 1 {
		t.Fatalf("refcnt = %d, want 1", h1.Refcnt())
	}

	h2, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get #2: %v", err)
	}
	if h2 != h1 {
		t.Fatalf("expected the same handle object to be shared")
	}
	if h1.Refcnt() != 2 {
		t.Fatalf("refcnt = %d, want 2 after two non-exclusive opens", h1.Refcnt())
	}

	r.Release(h1)
	r.Release(h2)
	if h1.Refcnt() != 0 {
		t.Fatalf("refcnt = %d, want 0 after releasing both", h1.Refcnt())
	}
}

func TestExclusiveGetFailsBusyUnderContention(t *testing.T) {
	r, _ := newTestRegistry(t, "orders")
	ctx := context.Background()

	h, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer r.Release(h)

	_, err = r.Get(ctx, "orders", "", Exclusive)
	if !storeengine.IsCode(err, storeengine.Busy) {
		t.Fatalf("expected BUSY requesting exclusive access against a held non-exclusive handle, got %v", err)
	}
}

func TestSpecialModeRefusesNonExclusive(t *testing.T) {
	r, _ := newTestRegistry(t, "orders")
	ctx := context.Background()

	h, err := r.Get(ctx, "orders", "", Exclusive|SpecialSalvage)
	if err != nil {
		t.Fatalf("Get exclusive+salvage: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "orders", "", 0)
		done <- err
	}()

	select {
	case err := <-done:
		if !storeengine.IsCode(err, storeengine.Busy) {
			t.Fatalf("expected BUSY against a SALVAGE handle, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("non-exclusive Get against a SALVAGE handle should fail fast, not block")
	}

	r.Release(h)
}

func TestMissingTableReturnsENOENT(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Get(context.Background(), "ghost", "", 0)
	if !storeengine.IsCode(err, storeengine.ENOENT) {
		t.Fatalf("expected ENOENT for an unregistered table, got %v", err)
	}
}

func TestCloseAllCheckspointsAndUnlinks(t *testing.T) {
	r, _ := newTestRegistry(t, "orders")
	ctx := context.Background()

	h, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tree := &fakeTree{}
	h.SetTree(tree)
	r.Release(h)

	if err := r.CloseAll(ctx, "orders"); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if tree.checkpoints != 1 {
		t.Fatalf("checkpoints = %d, want 1", tree.checkpoints)
	}
	if !tree.closed {
		t.Fatal("expected tree to be closed")
	}

	h2, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get after CloseAll: %v", err)
	}
	if h2 == h {
		t.Fatal("expected a fresh handle object after CloseAll unlinked the old one")
	}
	r.Release(h2)
}

func TestDiscardAllSkipsCheckpointInSpecialMode(t *testing.T) {
	r, _ := newTestRegistry(t, "orders")
	ctx := context.Background()

	h, err := r.Get(ctx, "orders", "", Exclusive|SpecialUpgrade)
	if err != nil {
		t.Fatalf("Get exclusive+upgrade: %v", err)
	}
	tree := &fakeTree{}
	h.SetTree(tree)
	r.Release(h)

	if err := r.DiscardAll(ctx); err != nil {
		t.Fatalf("DiscardAll: %v", err)
	}
	if tree.checkpoints != 0 {
		t.Fatalf("checkpoints = %d, want 0 for a special-mode handle", tree.checkpoints)
	}
	if !tree.closed {
		t.Fatal("expected tree to be closed even in special mode")
	}
}

func TestApplySkipsExclusiveAndMetadataHandles(t *testing.T) {
	r, _ := newTestRegistry(t, "orders", "customers", "metadata")
	ctx := context.Background()

	hOrders, err := r.Get(ctx, "orders", "", 0)
	if err != nil {
		t.Fatalf("Get orders: %v", err)
	}
	defer r.Release(hOrders)

	hMeta, err := r.Get(ctx, "metadata", "", 0)
	if err != nil {
		t.Fatalf("Get metadata: %v", err)
	}
	defer r.Release(hMeta)

	hExcl, err := r.Get(ctx, "customers", "", Exclusive)
	if err != nil {
		t.Fatalf("Get customers exclusive: %v", err)
	}
	defer r.Release(hExcl)

	var mu sync.Mutex
	var seen []string
	err = r.Apply(ctx, "", func(ctx context.Context, h *Handle) error {
		mu.Lock()
		seen = append(seen, h.Name)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(seen) != 1 || seen[0] != "orders" {
		t.Fatalf("Apply visited %v, want exactly [orders]", seen)
	}
}

func TestApplyHonorsPredicateExpression(t *testing.T) {
	r, _ := newTestRegistry(t, "orders", "customers")
	ctx := context.Background()

	h1, _ := r.Get(ctx, "orders", "", 0)
	h2, _ := r.Get(ctx, "customers", "", 0)
	defer r.Release(h1)
	defer r.Release(h2)

	var mu sync.Mutex
	var seen []string
	err := r.Apply(ctx, `mapX.name == "customers"`, func(ctx context.Context, h *Handle) error {
		mu.Lock()
		seen = append(seen, h.Name)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(seen) != 1 || seen[0] != "customers" {
		t.Fatalf("Apply visited %v, want exactly [customers]", seen)
	}
}
