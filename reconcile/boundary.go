package reconcile

// BoundaryEntry describes one chunk of the reconciler's working buffer: where it starts, the
// routing key/recno a parent page would need to address it, how many logical items it holds,
// and — once flushed — where it landed on disk.
type BoundaryEntry struct {
	StartPtr       int
	StartingRecno  int64
	KeyOfFirstRow  []byte
	EntriesInChunk int
	WrittenAddr    uint32 // set by flush; mirrors Off.Addr to keep BoundaryEntry comparable
	WrittenSize    uint32
}

// BoundaryList is an append-only, reusable-across-passes list of BoundaryEntry values.
type BoundaryList struct {
	entries []BoundaryEntry
}

// NewBoundaryList returns an empty list, pre-sized for a handful of chunks.
func NewBoundaryList() *BoundaryList {
	return &BoundaryList{entries: make([]BoundaryEntry, 0, 20)}
}

// Add appends e, growing the backing array in chunks of 20 when exhausted.
func (b *BoundaryList) Add(e BoundaryEntry) {
	if len(b.entries) == cap(b.entries) {
		grown := make([]BoundaryEntry, len(b.entries), cap(b.entries)+20)
		copy(grown, b.entries)
		b.entries = grown
	}
	b.entries = append(b.entries, e)
}

// Reset empties the list without releasing its backing array.
func (b *BoundaryList) Reset() { b.entries = b.entries[:0] }

// Len reports the number of recorded entries.
func (b *BoundaryList) Len() int { return len(b.entries) }

// At returns a pointer to entry i for in-place mutation (e.g. recording WrittenAddr/Size).
func (b *BoundaryList) At(i int) *BoundaryEntry { return &b.entries[i] }

// First returns the first entry's recno/key, or the zero value if the list is empty.
func (b *BoundaryList) First() (int64, []byte) {
	if len(b.entries) == 0 {
		return 0, nil
	}
	return b.entries[0].StartingRecno, b.entries[0].KeyOfFirstRow
}

// TotalEntries sums EntriesInChunk across every recorded entry.
func (b *BoundaryList) TotalEntries() int {
	n := 0
	for _, e := range b.entries {
		n += e.EntriesInChunk
	}
	return n
}

// Replace discards all recorded entries and installs e as the sole entry.
func (b *BoundaryList) Replace(e BoundaryEntry) {
	b.entries = append(b.entries[:0], e)
}
