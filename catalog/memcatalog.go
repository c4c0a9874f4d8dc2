package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/sharedcode/storeengine"
	"github.com/sharedcode/storeengine/block"
)

type checkpointKey struct {
	name       string
	checkpoint string
}

// MemCatalog is a process-local Catalog backed by plain maps, used by tests and by in-memory
// end-to-end scenarios that never touch a real metadata store.
type MemCatalog struct {
	mu          sync.RWMutex
	configs     map[string]string
	checkpoints map[checkpointKey]block.Addr
}

// NewMemCatalog returns an empty MemCatalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{
		configs:     make(map[string]string),
		checkpoints: make(map[checkpointKey]block.Addr),
	}
}

// RegisterTable installs (or replaces) the config string for name. Tests call this in place
// of a schema-creation pathway.
func (c *MemCatalog) RegisterTable(name, config string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[name] = config
}

// RegisterCheckpoint installs the root block address for a named checkpoint.
func (c *MemCatalog) RegisterCheckpoint(name, checkpoint string, addr block.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints[checkpointKey{name, checkpoint}] = addr
}

func (c *MemCatalog) MetadataRead(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.configs[name]
	if !ok {
		return "", storeengine.Error{Code: storeengine.NotFound, Err: fmt.Errorf("table %q not registered", name)}
	}
	return cfg, nil
}

func (c *MemCatalog) MetaCheckpointAddr(ctx context.Context, name, checkpoint string) (block.Addr, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.checkpoints[checkpointKey{name, checkpoint}]
	if !ok {
		return block.ADDR_INVALID, storeengine.Error{Code: storeengine.NotFound, Err: fmt.Errorf("checkpoint %q of table %q not found", checkpoint, name)}
	}
	return addr, nil
}
