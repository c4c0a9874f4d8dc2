package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block/blocktest"
)

func smallCfg() storeengine.TableConfig {
	return storeengine.TableConfig{
		PageSize:               200,
		SplitPct:               50,
		MaxLeafItemSize:        1000,
		AllocationSizeMultiple: 1,
	}
}

func newTestContext(cfg storeengine.TableConfig, w *blocktest.MemWriter) *Context {
	return NewContext(cfg, NewArena(), w, nil)
}

func TestReconcileRowLeafSingleChunkReplace(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{
		Type:  RowLeaf,
		Dirty: true,
		Updates: []Update{
			{Kind: UpdateInsert, Key: []byte("alpha"), Value: []byte("1"), HasValue: true},
			{Kind: UpdateInsert, Key: []byte("beta"), Value: []byte("2"), HasValue: true},
		},
	}

	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if page.Modify == nil || page.Modify.State != ModifyReplace {
		t.Fatalf("expected ModifyReplace, got %#v", page.Modify)
	}

	image, err := w.Read(context.Background(), page.Modify.Off.Addr, page.Modify.Off.Size)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	typ, _, entries, _, err := decodeHeader(image)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if typ != RowLeaf {
		t.Fatalf("type = %v, want RowLeaf", typ)
	}
	if entries != 4 {
		t.Fatalf("entries = %d, want 4 (2 keys + 2 values)", entries)
	}
}

func TestReconcileEmptyPage(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{Type: RowLeaf, Dirty: true}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if page.Modify == nil || page.Modify.State != ModifyEmpty {
		t.Fatalf("expected ModifyEmpty, got %#v", page.Modify)
	}
	if w.Writes != 0 {
		t.Fatalf("expected zero writes for an empty page, got %d", w.Writes)
	}
}

func TestReconcileRowLeafSplitsWhenOversized(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	var updates []Update
	for i := 0; i < 40; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		val := []byte(fmt.Sprintf("value-%04d-filler", i))
		updates = append(updates, Update{Kind: UpdateInsert, Key: key, Value: val, HasValue: true})
	}
	page := &Page{Type: RowLeaf, Dirty: true, Updates: updates}

	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if page.Modify == nil || page.Modify.State != ModifySplit {
		t.Fatalf("expected ModifySplit for an oversized page, got %#v", page.Modify)
	}
	if len(page.Modify.Merge.Children) < 2 {
		t.Fatalf("expected at least 2 split children, got %d", len(page.Modify.Merge.Children))
	}

	total := 0
	for _, c := range page.Modify.Merge.Children {
		if c.State != ChildReplaced {
			t.Fatalf("expected every merge child to be ChildReplaced, got %v", c.State)
		}
		image, err := w.Read(context.Background(), c.NewOff.Addr, c.NewOff.Size)
		if err != nil {
			t.Fatalf("Read child chunk: %v", err)
		}
		_, _, entries, _, err := decodeHeader(image)
		if err != nil {
			t.Fatalf("decodeHeader: %v", err)
		}
		total += entries
	}
	if total != len(updates)*2 {
		t.Fatalf("total entries across split chunks = %d, want %d", total, len(updates)*2)
	}
}

func TestReconcileDropsDeletedUpdates(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{
		Type:  RowLeaf,
		Dirty: true,
		Updates: []Update{
			{Kind: UpdateInsert, Key: []byte("alpha"), Value: []byte("1"), HasValue: true},
			{Kind: UpdateDelete, Key: []byte("beta")},
			{Kind: UpdateInsert, Key: []byte("gamma"), Value: []byte("3"), HasValue: true},
		},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	image, err := w.Read(context.Background(), page.Modify.Off.Addr, page.Modify.Off.Size)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	_, _, entries, _, err := decodeHeader(image)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if entries != 4 {
		t.Fatalf("entries = %d, want 4 (deleted key dropped)", entries)
	}
}

func TestOverflowPromotionAndReuse(t *testing.T) {
	cfg := smallCfg()
	cfg.MaxLeafItemSize = 16 // force promotion of anything non-trivial
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	bigVal := []byte("this value is definitely bigger than sixteen bytes")
	page := &Page{
		Type:  RowLeaf,
		Dirty: true,
		Updates: []Update{
			{Kind: UpdateInsert, Key: []byte("k"), Value: bigVal, HasValue: true},
		},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if page.Modify.State != ModifyReplace {
		t.Fatalf("expected ModifyReplace, got %v", page.Modify.State)
	}
	writesAfterFirst := w.Writes
	freesAfterFirst := w.Frees
	if writesAfterFirst < 2 {
		t.Fatalf("expected at least 2 writes (overflow value + chunk), got %d", writesAfterFirst)
	}

	// Re-reconcile with the overflow value unchanged: the overflow block must be reused
	// verbatim (no new write) and the old chunk freed but nothing new leaked.
	page.Dirty = true
	page.Updates = []Update{
		{Kind: UpdateInsert, Key: []byte("k"), Value: bigVal, HasValue: true},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	// The page chunk itself is always rewritten; only the overflow value write is skipped.
	if w.Writes != writesAfterFirst+1 {
		t.Fatalf("writes = %d after reconciling an unchanged overflow value, want %d (one new chunk write, zero new overflow writes)", w.Writes, writesAfterFirst+1)
	}
	if w.Frees != freesAfterFirst+1 {
		t.Fatalf("frees = %d, want %d (exactly the superseded chunk, overflow block retained)", w.Frees, freesAfterFirst+1)
	}
}

func TestColVarRunLengthEncodesRepeats(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{
		Type:  ColVar,
		Dirty: true,
		Records: []ColumnRecord{
			{Recno: 1, Value: []byte("x")},
			{Recno: 2, Value: []byte("x")},
			{Recno: 3, Value: []byte("x")},
			{Recno: 4, Value: []byte("y")},
		},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	image, err := w.Read(context.Background(), page.Modify.Off.Addr, page.Modify.Off.Size)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	_, _, entries, _, err := decodeHeader(image)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if entries != 2 {
		t.Fatalf("entries = %d, want 2 (one RLE run of 3 + one singleton)", entries)
	}
}

func TestColFixFillsGapsWithPlaceholders(t *testing.T) {
	cfg := smallCfg()
	cfg.FixedRecordLen = 4
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{
		Type:       ColFix,
		Dirty:      true,
		RecnoStart: 10,
		Records: []ColumnRecord{
			{Recno: 10, Value: []byte("aaaa")},
			{Recno: 13, Value: []byte("bbbb")},
		},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	image, err := w.Read(context.Background(), page.Modify.Off.Addr, page.Modify.Off.Size)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	_, _, entries, _, err := decodeHeader(image)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if entries != 4 {
		t.Fatalf("entries = %d, want 4 (recno 10..13 inclusive)", entries)
	}
}

func TestReconcileDiscardsPriorModifyBlock(t *testing.T) {
	cfg := smallCfg()
	w := blocktest.NewMemWriter()
	rctx := newTestContext(cfg, w)
	rc := NewReconciler(w)

	page := &Page{
		Type:  RowLeaf,
		Dirty: true,
		Updates: []Update{
			{Kind: UpdateInsert, Key: []byte("a"), Value: []byte("1"), HasValue: true},
		},
	}
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	firstAddr := page.Modify.Off.Addr

	page.Dirty = true
	page.Updates = append(page.Updates, Update{Kind: UpdateInsert, Key: []byte("b"), Value: []byte("2"), HasValue: true})
	if err := rc.Reconcile(context.Background(), rctx, page, nil); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	if _, err := w.Read(context.Background(), firstAddr, 0); err == nil {
		t.Fatalf("expected the first reconcile's chunk to be freed once superseded")
	}
}
