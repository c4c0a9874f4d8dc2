package reconcile

import (
	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block"
)

// splitState is the reconciler's three-state split machine.
type splitState int

const (
	splitTrackingOff splitState = iota // accumulate until pageSize, flush immediately on overflow
	splitBoundary                      // checkpoint every splitSize window, watching for pageSize overflow
	splitMax                           // last window runs to pageSize; the next split flushes recorded checkpoints
)

// Context (R) holds everything one page's reconcile needs: the working image buffer, the
// split state machine, the boundary/overflow trackers and the cell builder. One Context is
// created per table and reused across every page reconciled against it.
type Context struct {
	cfg     storeengine.TableConfig
	pageSize int

	arena *Arena
	work  *Buf

	bnd       *BoundaryList // chunks closed so far this pass, not yet flushed
	completed *BoundaryList // chunks flushed to disk this pass

	ovfl *OverflowTracker
	cb   *CellBuilder

	pageType PageType

	writePtr   int
	splitSize  int
	state      splitState
	spaceAvail int

	chunkStartPtr   int
	chunkStartRecno int64
	chunkStartKey   []byte
	chunkEntries    int
}

// NewContext builds a reconcile Context for a table with the given configuration, writing
// overflow payloads and finished chunks through w.
func NewContext(cfg storeengine.TableConfig, arena *Arena, w block.Writer, h Huffman) *Context {
	ovfl := NewOverflowTracker()
	return &Context{
		cfg:       cfg,
		pageSize:  cfg.PageSize,
		arena:     arena,
		work:      arena.Alloc(cfg.PageSize),
		bnd:       NewBoundaryList(),
		completed: NewBoundaryList(),
		ovfl:      ovfl,
		cb:        NewCellBuilder(cfg, w, h, ovfl),
	}
}

// beginPass resets every per-reconcile field and primes the split state machine for pageType.
func (rctx *Context) beginPass(pageType PageType) {
	rctx.writePtr = 0
	rctx.bnd.Reset()
	rctx.completed.Reset()
	rctx.chunkStartPtr = 0
	rctx.chunkStartRecno = 0
	rctx.chunkStartKey = nil
	rctx.chunkEntries = 0
	rctx.pageType = pageType

	fixedWidthColumn := pageType == ColFix
	rctx.splitSize = rctx.cfg.SplitSize(fixedWidthColumn)
	if rctx.pageSize == rctx.splitSize {
		rctx.state = splitTrackingOff
		rctx.spaceAvail = rctx.pageSize
	} else {
		rctx.state = splitBoundary
		rctx.spaceAvail = rctx.splitSize
	}
	rctx.cb.ResetPass()
}

// resetPass discards any partial progress on error, leaving the page's existing dirty state
// untouched for a later retry.
func (rctx *Context) resetPass() {
	rctx.writePtr = 0
	rctx.bnd.Reset()
	rctx.completed.Reset()
}
