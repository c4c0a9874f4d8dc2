package reconcile

import "context"

// walkRowLeaf replays a ROW_LEAF page's surviving updates in ascending key order, skipping
// tombstones. A trailing zero-length value is disambiguated with a trailing zero-length key
// cell, since an ordinary zero-length value emits no value cell at all.
func (rc *Reconciler) walkRowLeaf(ctx context.Context, rctx *Context, page *Page, salvage *Salvage) error {
	lastZeroLenValue := false

	emitRow := func(u Update) error {
		if !u.HasValue {
			return nil // tombstone
		}
		keyCell, _, err := rctx.cb.BuildKey(ctx, u.Key, false)
		if err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, keyCell, 0, u.Key); err != nil {
			return err
		}
		switch {
		case u.HasValue && len(u.Value) > 0:
			valCell, _, err := rctx.cb.BuildValue(ctx, u.Value, 1)
			if err != nil {
				return err
			}
			if err := rc.emit(ctx, rctx, valCell, 0, u.Key); err != nil {
				return err
			}
			lastZeroLenValue = false
		case u.HasValue:
			lastZeroLenValue = true
		default:
			lastZeroLenValue = false
		}
		return nil
	}

	for _, u := range page.SmallerThanFirst {
		if u.Kind == UpdateDelete {
			continue
		}
		if err := emitRow(u); err != nil {
			return err
		}
	}
	for _, u := range page.Updates {
		if u.Kind == UpdateDelete {
			continue
		}
		if err := emitRow(u); err != nil {
			return err
		}
	}

	if lastZeroLenValue {
		trailer, _, err := rctx.cb.BuildKey(ctx, []byte{}, false)
		if err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, trailer, 0, nil); err != nil {
			return err
		}
	}
	return nil
}

// walkRowInt replays a ROW_INT page's child references in ascending key order. The 0th child's
// key is truncated to a single byte, since tree descent treats it as -infinity regardless of
// its stored value. A child in SPLIT state is inlined: its transient merge page's own children
// are emitted directly into this page's image rather than persisted as a separate tree level.
func (rc *Reconciler) walkRowInt(ctx context.Context, rctx *Context, page *Page) error {
	for i, c := range page.Children {
		switch c.State {
		case ChildDeleted:
			continue
		case ChildSplit:
			if err := rc.mergeSplitChildRow(ctx, rctx, c); err != nil {
				return err
			}
			continue
		}

		off := c.OrigOff
		if c.State == ChildReplaced {
			off = c.NewOff
		}
		key := c.Key
		if i == 0 && len(key) > 1 {
			key = key[:1]
		}

		keyCell, _, err := rctx.cb.BuildKey(ctx, key, true)
		if err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, keyCell, 0, key); err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, encodeOffCell(off), 0, key); err != nil {
			return err
		}
	}
	return nil
}

func (rc *Reconciler) mergeSplitChildRow(ctx context.Context, rctx *Context, parentChild ChildRef) error {
	merge := parentChild.MergePage
	for i, gc := range merge.Children {
		key := gc.Key
		if i == 0 {
			key = parentChild.Key
		}
		keyCell, _, err := rctx.cb.BuildKey(ctx, key, true)
		if err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, keyCell, 0, key); err != nil {
			return err
		}
		if err := rc.emit(ctx, rctx, encodeOffCell(gc.NewOff), 0, key); err != nil {
			return err
		}
	}
	return nil
}
