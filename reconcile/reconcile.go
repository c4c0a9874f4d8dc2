package reconcile

import (
	"context"
	"fmt"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block"
)

// Reconciler turns a dirty Page into one or more on-disk images via its Context, using w as
// the block allocator for chunk and overflow writes.
type Reconciler struct {
	writer block.Writer
}

// NewReconciler returns a Reconciler writing through w.
func NewReconciler(w block.Writer) *Reconciler {
	return &Reconciler{writer: w}
}

// Reconcile builds a fresh on-disk image (or images, on split) for page and records the result
// on page.Modify. It is all-or-nothing: on error, the page is left exactly as dirty as before
// and the caller may retry.
func (rc *Reconciler) Reconcile(ctx context.Context, rctx *Context, page *Page, salvage *Salvage) error {
	if !page.Dirty && page.Modify == nil {
		return storeengine.Error{Code: storeengine.Corruption, Err: fmt.Errorf("reconcile called on a clean page")}
	}

	rc.discardPriorModify(rctx, page)

	rctx.beginPass(page.Type)
	rctx.ovfl.StartReconcile()

	if salvage != nil {
		salvage.Apply(page)
	}

	var err error
	switch page.Type {
	case RowLeaf:
		err = rc.walkRowLeaf(ctx, rctx, page, salvage)
	case RowInt:
		err = rc.walkRowInt(ctx, rctx, page)
	case ColFix:
		err = rc.walkColFix(ctx, rctx, page, salvage)
	case ColVar:
		err = rc.walkColVar(ctx, rctx, page, salvage)
	case ColInt:
		err = rc.walkColInt(ctx, rctx, page)
	default:
		err = storeengine.Error{Code: storeengine.Corruption, Err: fmt.Errorf("unknown page type %v", page.Type)}
	}
	if err != nil {
		rctx.resetPass()
		return err
	}

	if err := rc.splitFinish(ctx, rctx); err != nil {
		rctx.resetPass()
		return err
	}

	if err := rc.wrapUp(rctx, page); err != nil {
		rctx.resetPass()
		return err
	}

	if err := rctx.ovfl.WrapUp(ctx, rc.writer); err != nil {
		return err
	}

	page.Dirty = false
	if page.Parent != nil {
		page.Parent.Dirty = true
	}
	return nil
}

// discardPriorModify marks whatever the page's previous reconcile produced as superseded,
// since this pass is about to replace it entirely. The actual Free is deferred to this same
// pass's ovfl.WrapUp, so a failure partway through the new pass leaves the old, still-valid
// chunks on disk rather than freeing them before their replacements are durable.
func (rc *Reconciler) discardPriorModify(rctx *Context, page *Page) {
	if page.Modify == nil {
		return
	}
	switch page.Modify.State {
	case ModifyReplace:
		rctx.ovfl.TrackChunk(page.Modify.Off)
	case ModifySplit:
		trackMergePage(rctx, page.Modify.Merge)
	}
}

func trackMergePage(rctx *Context, merge *Page) {
	for _, c := range merge.Children {
		switch c.State {
		case ChildReplaced:
			rctx.ovfl.TrackChunk(c.NewOff)
		case ChildSplit:
			trackMergePage(rctx, c.MergePage)
		}
	}
}

// emit appends a built cell to the working buffer, splitting first if it would not fit in the
// current space budget.
func (rc *Reconciler) emit(ctx context.Context, rctx *Context, cell []byte, recno int64, key []byte) error {
	if rctx.writePtr+len(cell) > rctx.spaceAvail {
		if err := rc.split(ctx, rctx, recno, key); err != nil {
			return err
		}
	}
	rctx.work.Grow(rctx.writePtr + len(cell))
	copy(rctx.work.Bytes[rctx.writePtr:], cell)
	rctx.writePtr += len(cell)
	rctx.chunkEntries++
	return nil
}

// split closes the currently-open chunk and, depending on state, either checkpoints a new
// boundary, or flushes every recorded boundary to disk and resets the working buffer.
func (rc *Reconciler) split(ctx context.Context, rctx *Context, triggerRecno int64, triggerKey []byte) error {
	rctx.bnd.Add(BoundaryEntry{
		StartPtr:       rctx.chunkStartPtr,
		StartingRecno:  rctx.chunkStartRecno,
		KeyOfFirstRow:  rctx.chunkStartKey,
		EntriesInChunk: rctx.chunkEntries,
	})

	switch rctx.state {
	case splitBoundary:
		rctx.chunkStartPtr = rctx.writePtr
		rctx.chunkStartRecno = triggerRecno
		rctx.chunkStartKey = triggerKey
		rctx.chunkEntries = 0

		nextWindowEnd := rctx.writePtr + rctx.splitSize
		if nextWindowEnd <= rctx.pageSize {
			rctx.spaceAvail = nextWindowEnd
		} else {
			rctx.state = splitMax
			rctx.spaceAvail = rctx.pageSize
		}
		return nil

	case splitMax:
		if err := rc.flushBoundaries(ctx, rctx); err != nil {
			return err
		}
		rctx.chunkStartPtr = 0
		rctx.chunkStartRecno = triggerRecno
		rctx.chunkStartKey = triggerKey
		rctx.chunkEntries = 0
		rctx.state = splitTrackingOff
		rctx.spaceAvail = rctx.pageSize
		return nil

	default: // splitTrackingOff
		if err := rc.flushBoundaries(ctx, rctx); err != nil {
			return err
		}
		rctx.chunkStartPtr = 0
		rctx.chunkStartRecno = triggerRecno
		rctx.chunkStartKey = triggerKey
		rctx.chunkEntries = 0
		rctx.spaceAvail = rctx.pageSize
		return nil
	}
}

// flushBoundaries writes every recorded (now-closed) boundary entry to disk as its own chunk
// and resets the working buffer to empty.
func (rc *Reconciler) flushBoundaries(ctx context.Context, rctx *Context) error {
	for i := 0; i < rctx.bnd.Len(); i++ {
		e := rctx.bnd.At(i)
		end := rctx.writePtr
		if i+1 < rctx.bnd.Len() {
			end = rctx.bnd.At(i + 1).StartPtr
		}
		cells := rctx.work.Bytes[e.StartPtr:end]
		image := encodeHeader(rctx.pageType, e.StartingRecno, e.EntriesInChunk, cells)

		addr, size, err := rc.writer.Write(ctx, image)
		if err != nil {
			return err
		}
		e.WrittenAddr, e.WrittenSize = uint32(addr), size
		rctx.completed.Add(*e)
	}
	rctx.bnd.Reset()
	rctx.writePtr = 0
	return nil
}

// splitFinish closes out the page: flushes a trailing TRACKING_OFF chunk, or — if the page
// never grew past page_size as a whole — collapses every recorded boundary into one chunk.
func (rc *Reconciler) splitFinish(ctx context.Context, rctx *Context) error {
	rctx.bnd.Add(BoundaryEntry{
		StartPtr:       rctx.chunkStartPtr,
		StartingRecno:  rctx.chunkStartRecno,
		KeyOfFirstRow:  rctx.chunkStartKey,
		EntriesInChunk: rctx.chunkEntries,
	})

	if rctx.writePtr == 0 && rctx.bnd.Len() == 1 && rctx.bnd.At(0).EntriesInChunk == 0 {
		rctx.bnd.Reset()
		return nil
	}

	if rctx.state != splitTrackingOff {
		recno, key := rctx.bnd.First()
		rctx.bnd.Replace(BoundaryEntry{
			StartPtr:       0,
			StartingRecno:  recno,
			KeyOfFirstRow:  key,
			EntriesInChunk: rctx.bnd.TotalEntries(),
		})
	}

	return rc.flushBoundaries(ctx, rctx)
}

// wrapUp derives the page's new Modify from however many chunks this pass produced.
func (rc *Reconciler) wrapUp(rctx *Context, page *Page) error {
	n := rctx.completed.Len()
	switch {
	case n == 0:
		page.Modify = &Modify{State: ModifyEmpty}
	case n == 1:
		e := rctx.completed.At(0)
		page.Modify = &Modify{State: ModifyReplace, Off: Off{Addr: block.Addr(e.WrittenAddr), Size: e.WrittenSize}}
	default:
		merge := buildMergePage(rctx, page)
		mod := &Modify{State: ModifySplit, Merge: merge}
		page.Modify = mod
		merge.Modify = mod
	}
	rctx.completed.Reset()
	return nil
}

// buildMergePage turns the chunks written this pass into a transient internal page of child
// references, one per chunk, which the page's parent will fold in on its own next reconcile.
func buildMergePage(rctx *Context, page *Page) *Page {
	typ := RowInt
	if !page.Type.isRowStore() {
		typ = ColInt
	}
	merge := &Page{Type: typ, Dirty: true}
	for i := 0; i < rctx.completed.Len(); i++ {
		e := rctx.completed.At(i)
		merge.Children = append(merge.Children, ChildRef{
			State:      ChildReplaced,
			Key:        e.KeyOfFirstRow,
			StartRecno: e.StartingRecno,
			NewOff:     Off{Addr: block.Addr(e.WrittenAddr), Size: e.WrittenSize},
		})
	}
	return merge
}
