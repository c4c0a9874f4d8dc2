package reconcile

import (
	"context"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block"
)

// Huffman encodes cell payloads before they are sized against the leaf item limit. A nil
// Huffman is a no-op passthrough.
type Huffman interface {
	EncodeKey(b []byte) []byte
	EncodeValue(b []byte) []byte
}

const (
	cellKeyOverhead   = 4 // cellType + prefixLen + suffixLen(uint16)
	cellValueOverhead = 9 // cellType + rle(uint32) + dataLen(uint32)
)

// CellBuilder turns row-store keys and values into on-disk cells, applying prefix compression
// across consecutive keys (no suffix compression) and promoting oversized payloads to overflow
// blocks. It
// consults ovfl before every overflow write so an unchanged value reuses its existing block
// instead of rewriting (and leaking) a new one.
type CellBuilder struct {
	cfg     storeengine.TableConfig
	writer  block.Writer
	huffman Huffman
	ovfl    *OverflowTracker

	last          []byte
	current       []byte
	prefixEnabled bool
}

// NewCellBuilder returns a CellBuilder writing overflow payloads through w, tracked by ovfl.
func NewCellBuilder(cfg storeengine.TableConfig, w block.Writer, h Huffman, ovfl *OverflowTracker) *CellBuilder {
	return &CellBuilder{cfg: cfg, writer: w, huffman: h, ovfl: ovfl}
}

// ResetPass clears the prefix-compression chain at the start of a new reconcile.
func (c *CellBuilder) ResetPass() {
	c.last = nil
	c.current = nil
	c.prefixEnabled = c.cfg.PrefixCompression
}

func (c *CellBuilder) encodeKeyBytes(b []byte) []byte {
	if c.huffman != nil {
		return c.huffman.EncodeKey(b)
	}
	return b
}

func (c *CellBuilder) encodeValueBytes(b []byte) []byte {
	if c.huffman != nil {
		return c.huffman.EncodeValue(b)
	}
	return b
}

// BuildKey builds the cell for a row-store key. isInternal disables prefix compression, since
// internal-page routing keys must stand alone for independent tree-descent comparisons.
func (c *CellBuilder) BuildKey(ctx context.Context, key []byte, isInternal bool) ([]byte, bool, error) {
	prefixLen := 0
	if c.prefixEnabled && !isInternal && c.last != nil {
		prefixLen = sharedPrefixLen(c.last, key)
		if prefixLen > 255 {
			prefixLen = 255
		}
	}
	suffix := key[prefixLen:]
	enc := c.encodeKeyBytes(suffix)

	if len(enc)+cellKeyOverhead > c.cfg.MaxLeafItemSize {
		if prefixLen > 0 {
			// Overflow items are never prefix-compressed: retry against the full key.
			prefixLen = 0
			enc = c.encodeKeyBytes(key)
		}
		off, err := c.writeOverflow(ctx, enc)
		if err != nil {
			return nil, false, err
		}
		c.afterEmit(key, true)
		return encodeOverflowCell(cellKeyOverflow, off, 0), true, nil
	}

	cell := encodeKeyCell(uint8(prefixLen), enc)
	c.afterEmit(key, false)
	return cell, false, nil
}

// BuildValue builds the cell for a value, with rle recording how many consecutive column-store
// records this value covers (1 for row-store).
func (c *CellBuilder) BuildValue(ctx context.Context, value []byte, rle uint32) ([]byte, bool, error) {
	enc := c.encodeValueBytes(value)
	if len(enc)+cellValueOverhead > c.cfg.MaxLeafItemSize {
		off, err := c.writeOverflow(ctx, enc)
		if err != nil {
			return nil, false, err
		}
		return encodeOverflowCell(cellValueOverflow, off, rle), true, nil
	}
	return encodeValueCell(rle, enc), false, nil
}

// writeOverflow returns the location of an overflow block holding enc, reusing a block left
// over from this table's prior reconcile if its content is byte-identical, and writing (then
// tracking) a fresh block otherwise.
func (c *CellBuilder) writeOverflow(ctx context.Context, enc []byte) (Off, error) {
	if off, ok := c.ovfl.Reuse(enc); ok {
		return off, nil
	}
	addr, size, err := c.writer.Write(ctx, enc)
	if err != nil {
		return Off{}, err
	}
	off := Off{Addr: addr, Size: size}
	c.ovfl.TrackOverflow(append([]byte(nil), enc...), off)
	return off, nil
}

func (c *CellBuilder) afterEmit(key []byte, overflow bool) {
	if overflow {
		// We no longer hold the clear bytes needed to compute the next key's shared prefix
		// against this one reliably once it's gone to an overflow block; start a fresh chain.
		c.last = nil
		return
	}
	c.last = append([]byte(nil), key...)
}
