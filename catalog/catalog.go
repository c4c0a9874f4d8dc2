// Package catalog resolves table configuration and checkpoint root addresses against an
// external metadata store: metadata_read(name) -> config_string and
// meta_checkpoint_addr(name, checkpoint) -> addr_cookie.
package catalog

import (
	"context"

	"github.com/sharedcode/storeengine/block"
)

// Catalog resolves a table's opaque configuration string and a checkpoint's root block
// address. Implementations return a storeengine.Error{Code: storeengine.NotFound} (not
// ENOENT) when name/checkpoint is unknown -- callers that need ENOENT semantics remap it at
// their boundary.
type Catalog interface {
	MetadataRead(ctx context.Context, name string) (string, error)
	MetaCheckpointAddr(ctx context.Context, name, checkpoint string) (block.Addr, error)
}
