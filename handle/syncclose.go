package handle

import "context"

// SyncAndClose checkpoints and closes h's backing tree. A handle open in a special maintenance
// mode (SALVAGE/UPGRADE/VERIFY) skips the checkpoint -- its content is by definition not yet
// trustworthy -- but is still closed. It is idempotent: calling it on an already-closed handle
// does nothing. The caller must hold h's exclusive lock; SetTree establishes the backing tree
// at open time.
func SyncAndClose(ctx context.Context, h *Handle) error {
	if h.flags&Open == 0 {
		return nil
	}

	var firstErr error
	if h.tree != nil {
		if !h.flags.Special() {
			if err := h.tree.Checkpoint(ctx); err != nil {
				firstErr = err
			}
		}
		if err := h.tree.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	h.flags &^= Open | specialMask
	return firstErr
}

// SetTree installs the Checkpointer backing h. Called once, by whatever opens the table's
// actual B-tree, before the handle is released back to its first non-exclusive caller.
func (h *Handle) SetTree(t Checkpointer) { h.tree = t }
