package reconcile

import "context"

// walkColInt replays a COL_INT page's child references in ascending record-number order. Cells
// carry a fixed-size {addr, size, recno} triple with no key compression, since column-store
// routing is purely numeric.
func (rc *Reconciler) walkColInt(ctx context.Context, rctx *Context, page *Page) error {
	for _, c := range page.Children {
		switch c.State {
		case ChildDeleted:
			continue
		case ChildSplit:
			if err := rc.mergeSplitChildCol(ctx, rctx, c); err != nil {
				return err
			}
			continue
		}

		off := c.OrigOff
		if c.State == ChildReplaced {
			off = c.NewOff
		}
		if err := rc.emit(ctx, rctx, encodeColIntCell(off, c.StartRecno), c.StartRecno, nil); err != nil {
			return err
		}
	}
	return nil
}

func (rc *Reconciler) mergeSplitChildCol(ctx context.Context, rctx *Context, parentChild ChildRef) error {
	merge := parentChild.MergePage
	for i, gc := range merge.Children {
		recno := gc.StartRecno
		if i == 0 {
			recno = parentChild.StartRecno
		}
		if err := rc.emit(ctx, rctx, encodeColIntCell(gc.NewOff, recno), recno, nil); err != nil {
			return err
		}
	}
	return nil
}
