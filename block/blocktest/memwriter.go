// Package blocktest provides an in-memory block.Writer double for deterministic reconciler
// and handle registry tests.
package blocktest

import (
	"context"
	"sync"

	"github.com/sharedcode/storeengine/block"
)

// MemWriter is a trivial in-memory block.Writer: Write appends to an internal map keyed by a
// monotonically increasing address, Free deletes the entry. It also counts writes and frees so
// tests can assert that overflow block reuse produces zero new writes or frees.
type MemWriter struct {
	mu      sync.Mutex
	blocks  map[block.Addr][]byte
	next    uint32
	Writes  int
	Frees   int
}

// NewMemWriter returns an empty MemWriter.
func NewMemWriter() *MemWriter {
	return &MemWriter{blocks: make(map[block.Addr][]byte)}
}

func (m *MemWriter) Write(ctx context.Context, buf []byte) (block.Addr, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	addr := block.Addr(m.next)
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.blocks[addr] = cp
	m.Writes++
	return addr, uint32(len(buf)), nil
}

func (m *MemWriter) Read(ctx context.Context, addr block.Addr, size uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[addr]
	if !ok {
		return nil, block.ErrNotFound(addr)
	}
	return b, nil
}

func (m *MemWriter) Free(ctx context.Context, addr block.Addr, size uint32) error {
	if addr == block.ADDR_INVALID {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, addr)
	m.Frees++
	return nil
}

// Len returns the number of currently-live blocks.
func (m *MemWriter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}
