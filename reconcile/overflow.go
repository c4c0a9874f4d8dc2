package reconcile

import (
	"bytes"
	"context"

	"github.com/sharedcode/storeengine/block"
)

// trackedKind classifies one entry tracked across reconciles of the same page.
type trackedKind int

const (
	trackBlock       trackedKind = iota // the prior pass's now-superseded chunk, freed at this pass's WrapUp
	trackOvfl                           // an overflow block still referenced by the page
	trackOvflDiscard                    // an overflow block not yet seen again this reconcile; freed unless reclaimed
)

type trackedBlock struct {
	kind trackedKind
	ref  []byte // the source value bytes, used to detect reuse across reconciles
	off  Off
}

// OverflowTracker remembers the overflow and chunk blocks a page's prior reconciles produced,
// so an unchanged overflow value is detected and reused verbatim instead of rewritten, and so
// anything genuinely superseded gets freed exactly once.
type OverflowTracker struct {
	blocks []trackedBlock
}

// NewOverflowTracker returns an empty tracker, pre-sized for a handful of entries.
func NewOverflowTracker() *OverflowTracker {
	return &OverflowTracker{blocks: make([]trackedBlock, 0, 20)}
}

func (t *OverflowTracker) track(kind trackedKind, ref []byte, off Off) {
	if len(t.blocks) == cap(t.blocks) {
		grown := make([]trackedBlock, len(t.blocks), cap(t.blocks)+20)
		copy(grown, t.blocks)
		t.blocks = grown
	}
	t.blocks = append(t.blocks, trackedBlock{kind: kind, ref: ref, off: off})
}

// TrackChunk records a chunk written by the page's prior reconcile, now superseded; WrapUp
// frees it.
func (t *OverflowTracker) TrackChunk(off Off) { t.track(trackBlock, nil, off) }

// TrackOverflow records a freshly written overflow block, keyed by the value it holds.
func (t *OverflowTracker) TrackOverflow(ref []byte, off Off) { t.track(trackOvfl, ref, off) }

// StartReconcile flips every tracked overflow entry to "discard pending": entries reclaimed via
// Reuse during this pass flip back to live; anything left in discard state at WrapUp is freed.
func (t *OverflowTracker) StartReconcile() {
	for i := range t.blocks {
		if t.blocks[i].kind == trackOvfl {
			t.blocks[i].kind = trackOvflDiscard
		}
	}
}

// Reuse looks for a discard-pending overflow entry whose ref matches exactly. On a hit it
// flips the entry back to live and returns its location without rewriting the block. A nil ref
// never matches.
func (t *OverflowTracker) Reuse(ref []byte) (Off, bool) {
	if ref == nil {
		return Off{}, false
	}
	for i := range t.blocks {
		if t.blocks[i].kind == trackOvflDiscard && bytes.Equal(t.blocks[i].ref, ref) {
			t.blocks[i].kind = trackOvfl
			return t.blocks[i].off, true
		}
	}
	return Off{}, false
}

// WrapUp frees every block still marked for discard (overflow entries untouched by Reuse this
// pass, and chunk entries from the page's prior reconcile), keeping live overflow entries for
// the next reconcile.
func (t *OverflowTracker) WrapUp(ctx context.Context, w block.Writer) error {
	kept := t.blocks[:0]
	for _, b := range t.blocks {
		switch b.kind {
		case trackOvflDiscard, trackBlock:
			if err := w.Free(ctx, b.off.Addr, b.off.Size); err != nil {
				return err
			}
		default:
			kept = append(kept, b)
		}
	}
	t.blocks = kept
	return nil
}
