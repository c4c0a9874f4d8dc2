package block

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sharedcode/storeengine"
)

// permission is the directory/file permission used for block files.
const permission os.FileMode = 0o750

// FileStore is a local-filesystem-backed Writer: one file per address, fanned out across a
// 3-level directory hierarchy derived from the address so no single directory holds an
// unbounded number of entries.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
	next    uint32
}

// NewFileStore creates (if needed) baseDir and returns a FileStore rooted there.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, permission); err != nil {
		return nil, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: baseDir}
	}
	return &FileStore{baseDir: baseDir}, nil
}

// toFilePath follows DefaultToFilePath's hex-hierarchy idea with three directory levels, keyed
// off the address instead of a UUID since block addresses here are monotonically assigned
// uint32 tokens.
func (f *FileStore) toFilePath(addr Addr) string {
	h := fmt.Sprintf("%08x", uint32(addr))
	return filepath.Join(f.baseDir, h[0:2], h[2:4], h[4:6])
}

func (f *FileStore) fileName(addr Addr) string {
	return filepath.Join(f.toFilePath(addr), fmt.Sprintf("%08x.blk", uint32(addr)))
}

func (f *FileStore) allocAddr() Addr {
	return Addr(atomic.AddUint32(&f.next, 1))
}

func (f *FileStore) Write(ctx context.Context, buf []byte) (Addr, uint32, error) {
	f.mu.Lock()
	addr := f.allocAddr()
	dir := f.toFilePath(addr)
	f.mu.Unlock()

	if err := os.MkdirAll(dir, permission); err != nil {
		return ADDR_INVALID, 0, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	if err := os.WriteFile(f.fileName(addr), buf, permission); err != nil {
		return ADDR_INVALID, 0, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return addr, uint32(len(buf)), nil
}

func (f *FileStore) Read(ctx context.Context, addr Addr, size uint32) ([]byte, error) {
	b, err := os.ReadFile(f.fileName(addr))
	if err != nil {
		return nil, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return b, nil
}

func (f *FileStore) Free(ctx context.Context, addr Addr, size uint32) error {
	if addr == ADDR_INVALID {
		return nil
	}
	if err := os.Remove(f.fileName(addr)); err != nil && !os.IsNotExist(err) {
		return storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return nil
}
