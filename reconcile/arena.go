package reconcile

import "github.com/ncw/directio"

// Arena hands out aligned, growable scratch buffers for the reconciler's working image. Sizes
// always round up to a directio block boundary so a buffer can later be handed straight to an
// O_DIRECT-backed block.Writer without an extra copy.
type Arena struct{}

// NewArena returns an Arena. It carries no state of its own today; it exists as the seam a
// future pooling allocator would hang off of without changing call sites.
func NewArena() *Arena { return &Arena{} }

// Buf is a growable byte buffer whose backing array is always aligned and sized to a multiple
// of directio.BlockSize.
type Buf struct {
	Bytes []byte
}

func alignUp(n int) int {
	if n <= 0 {
		return directio.BlockSize
	}
	if rem := n % directio.BlockSize; rem != 0 {
		n += directio.BlockSize - rem
	}
	return n
}

// Alloc returns a Buf with at least size bytes of capacity.
func (a *Arena) Alloc(size int) *Buf {
	return &Buf{Bytes: directio.AlignedBlock(alignUp(size))}
}

// Grow ensures the buffer has at least n bytes of capacity, preserving existing content and
// resizing (not just re-slicing) only when the current backing array is too small.
func (b *Buf) Grow(n int) {
	if cap(b.Bytes) >= n {
		b.Bytes = b.Bytes[:cap(b.Bytes)]
		return
	}
	grown := directio.AlignedBlock(alignUp(n))
	copy(grown, b.Bytes)
	b.Bytes = grown
}
