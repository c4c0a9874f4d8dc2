// Package handle implements the data handle registry: the process-wide structure mediating
// concurrent access to named tables and checkpoints. It owns the open-lock spin algorithm
// (non-blocking exclusive acquisition, read-lock fast path, BUSY-over-blocking for exclusive
// callers), the handle lifecycle (open/close/discard) and the sync-and-close pathway that
// checkpoints and releases a table's backing tree.
package handle
