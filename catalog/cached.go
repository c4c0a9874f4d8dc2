package catalog

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/sharedcode/storeengine/block"
	secache "github.com/sharedcode/storeengine/internal/cache"
)

// Cached fronts a Catalog with an L2 cache: consult the cache first, fall through to source on
// a miss, and tolerate cache failures as best-effort (log a Warn, still return the source's
// answer). A cache write failure never fails the caller's MetadataRead/MetaCheckpointAddr call.
type Cached struct {
	source Catalog
	l2     secache.L2
	ttl    time.Duration
}

// NewCached wraps source with an L2 cache of the given TTL (0 = cache forever).
func NewCached(source Catalog, l2 secache.L2, ttl time.Duration) *Cached {
	return &Cached{source: source, l2: l2, ttl: ttl}
}

func configKey(name string) string {
	return "cfg:" + name
}

func checkpointCacheKey(name, checkpoint string) string {
	return "ckpt:" + name + ":" + checkpoint
}

func (c *Cached) MetadataRead(ctx context.Context, name string) (string, error) {
	key := configKey(name)
	if v, found, err := c.l2.Get(ctx, key); err != nil {
		log.Warn(fmt.Sprintf("catalog cache get failed, details: %v", err))
	} else if found {
		return v, nil
	}

	cfg, err := c.source.MetadataRead(ctx, name)
	if err != nil {
		return "", err
	}
	if err := c.l2.Set(ctx, key, cfg, c.ttl); err != nil {
		log.Warn(fmt.Sprintf("catalog cache set failed, details: %v", err))
	}
	return cfg, nil
}

func (c *Cached) MetaCheckpointAddr(ctx context.Context, name, checkpoint string) (block.Addr, error) {
	key := checkpointCacheKey(name, checkpoint)
	if v, found, err := c.l2.Get(ctx, key); err != nil {
		log.Warn(fmt.Sprintf("catalog cache get failed, details: %v", err))
	} else if found {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return block.Addr(n), nil
		}
	}

	addr, err := c.source.MetaCheckpointAddr(ctx, name, checkpoint)
	if err != nil {
		return block.ADDR_INVALID, err
	}
	if err := c.l2.Set(ctx, key, strconv.FormatUint(uint64(addr), 10), c.ttl); err != nil {
		log.Warn(fmt.Sprintf("catalog cache set failed, details: %v", err))
	}
	return addr, nil
}
