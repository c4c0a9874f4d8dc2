// Package block implements concrete realizations of a block allocator contract:
// block_write(buf) -> (addr, size) and block_free(addr, size). The reconciler only ever talks
// to the Writer interface; which concrete store backs it is a deployment decision.
package block

import (
	"context"
	"fmt"

	"github.com/sharedcode/storeengine"
)

// Addr is an opaque on-disk block address token. ADDR_INVALID is reserved and never returned
// by a successful Write.
type Addr uint32

// ADDR_INVALID is the reserved "no address" token.
const ADDR_INVALID Addr = 0

func (a Addr) String() string {
	if a == ADDR_INVALID {
		return "invalid"
	}
	return fmt.Sprintf("0x%08x", uint32(a))
}

// Writer is the block allocator contract the reconciler and overflow tracker consume.
type Writer interface {
	// Write persists buf as a new block and returns its address and on-disk size. Size may
	// differ from len(buf) once a store applies padding, compression or erasure coding --
	// callers needing byte-exact page-image size accounting use len(buf), not the returned
	// size.
	Write(ctx context.Context, buf []byte) (Addr, uint32, error)
	// Read reads back a previously written block, for round-trip testing and salvage.
	Read(ctx context.Context, addr Addr, size uint32) ([]byte, error)
	// Free releases a block previously returned by Write. Freeing ADDR_INVALID is a no-op.
	Free(ctx context.Context, addr Addr, size uint32) error
}

// ErrNotFound builds the standard "no such block" error a Writer.Read should return when addr
// is unknown.
func ErrNotFound(addr Addr) error {
	return storeengine.Error{Code: storeengine.ENOENT, UserData: addr, Err: fmt.Errorf("block %s not found", addr)}
}
