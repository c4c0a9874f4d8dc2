package reconcile

import (
	"bytes"
	"context"
)

// fixedRecordLen returns the configured per-record byte width for a fixed-width column store.
func fixedRecordLen(rctx *Context) int {
	if rctx.cfg.FixedRecordLen <= 0 {
		return 1
	}
	return rctx.cfg.FixedRecordLen
}

// walkColFix packs a COL_FIX page's fixed-width records in recno order, filling any gap
// between RecnoStart and the next present record with zero-valued records so the record
// number namespace stays contiguous.
func (rc *Reconciler) walkColFix(ctx context.Context, rctx *Context, page *Page, salvage *Salvage) error {
	recno := page.RecnoStart
	width := fixedRecordLen(rctx)

	for _, rec := range page.Records {
		for recno < rec.Recno {
			if err := rc.emit(ctx, rctx, encodeFixedCell(make([]byte, width)), recno, nil); err != nil {
				return err
			}
			recno++
		}
		val := rec.Value
		if rec.Deleted {
			val = make([]byte, width)
		}
		if err := rc.emit(ctx, rctx, encodeFixedCell(val), recno, nil); err != nil {
			return err
		}
		recno++
	}
	return nil
}

// walkColVar packs a COL_VAR page's variable-width records, run-length-encoding consecutive
// identical values (or consecutive deletions). An unmodified on-disk overflow record is copied
// through verbatim and always breaks the current run, since its value is never decoded here.
func (rc *Reconciler) walkColVar(ctx context.Context, rctx *Context, page *Page, salvage *Salvage) error {
	var runLen uint32
	var runDeleted bool
	var runVal []byte
	var runRecno int64
	haveRun := false

	flush := func() error {
		if !haveRun {
			return nil
		}
		if runDeleted {
			if err := rc.emit(ctx, rctx, encodeDeletedRLECell(runLen), runRecno, nil); err != nil {
				return err
			}
		} else {
			valCell, _, err := rctx.cb.BuildValue(ctx, runVal, runLen)
			if err != nil {
				return err
			}
			if err := rc.emit(ctx, rctx, valCell, runRecno, nil); err != nil {
				return err
			}
		}
		haveRun = false
		return nil
	}

	for _, rec := range page.Records {
		if rec.IsOverflowCellNoUpdate {
			if err := flush(); err != nil {
				return err
			}
			if err := rc.emit(ctx, rctx, encodeRawOverflowPassthrough(rec.RawOverflow), rec.Recno, nil); err != nil {
				return err
			}
			continue
		}

		matches := haveRun && rec.Deleted == runDeleted && (runDeleted || bytes.Equal(rec.Value, runVal))
		if matches {
			runLen++
			continue
		}

		if err := flush(); err != nil {
			return err
		}
		haveRun = true
		runDeleted = rec.Deleted
		runVal = rec.Value
		runRecno = rec.Recno
		runLen = 1
	}
	return flush()
}
