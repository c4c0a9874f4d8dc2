package storeengine

import "encoding/json"

// TableConfig is the per-table tuning the reconciler and handle registry need. A handle's
// opaque Config string (as returned by the metadata catalog's MetadataRead) is exactly the
// JSON encoding of a TableConfig; ParseTableConfig parses it back out for reconcile.NewContext.
type TableConfig struct {
	// PageSize is the maximum on-disk chunk size for this page type, in bytes.
	PageSize int
	// SplitPct is the percentage of PageSize used as the first split checkpoint window,
	// typically 75.
	SplitPct int
	// MaxLeafItemSize is the per-page max item size beyond which a key or value is promoted
	// to an overflow block.
	MaxLeafItemSize int
	// AllocationSizeMultiple is the block allocator's granularity; split_size is clamped to a
	// multiple of this value.
	AllocationSizeMultiple int
	// PrefixCompression enables shared-prefix elision between consecutive row-store keys.
	PrefixCompression bool
	// SuffixCompression is carried in the configuration but not read by the reconciler:
	// promoted internal keys are stored at full length whatever its value.
	SuffixCompression bool
	// HuffmanKeys/HuffmanValues are carried in the configuration but not read by the
	// reconciler: the cell builder encodes keys and values whenever a Huffman hook is supplied,
	// and a nil hook is a no-op passthrough.
	HuffmanKeys   bool
	HuffmanValues bool
	// Checkpoint, if non-empty, names the immutable snapshot this configuration applies to.
	Checkpoint string
	// FixedRecordLen is the per-record byte width for a fixed-width column store; unused by
	// any other page type.
	FixedRecordLen int
}

// DefaultTableConfig mirrors the reconciler's documented defaults: a 75% split threshold and
// prefix/suffix compression both enabled.
func DefaultTableConfig(pageSize, maxLeafItemSize int) TableConfig {
	return TableConfig{
		PageSize:               pageSize,
		SplitPct:               75,
		MaxLeafItemSize:        maxLeafItemSize,
		AllocationSizeMultiple: 512,
		PrefixCompression:      true,
		SuffixCompression:      true,
	}
}

// Marshal encodes the config to the opaque string form stored on a Handle.
func (tc TableConfig) Marshal() (string, error) {
	b, err := json.Marshal(tc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseTableConfig decodes the opaque config string a catalog returns for a table.
func ParseTableConfig(s string) (TableConfig, error) {
	var tc TableConfig
	if s == "" {
		return tc, nil
	}
	if err := json.Unmarshal([]byte(s), &tc); err != nil {
		return TableConfig{}, err
	}
	return tc, nil
}

// SplitSize computes the first split checkpoint window: page_size * split_pct / 100, clamped
// up to the next allocation-size multiple, except for the fixed-width column page type where
// split_size always equals page_size (no split state machine is useful there).
func (tc TableConfig) SplitSize(fixedWidthColumn bool) int {
	if fixedWidthColumn {
		return tc.PageSize
	}
	raw := tc.PageSize * tc.SplitPct / 100
	if tc.AllocationSizeMultiple <= 0 {
		return raw
	}
	if rem := raw % tc.AllocationSizeMultiple; rem != 0 {
		raw += tc.AllocationSizeMultiple - rem
	}
	if raw > tc.PageSize {
		raw = tc.PageSize
	}
	if raw <= 0 {
		raw = tc.PageSize
	}
	return raw
}
