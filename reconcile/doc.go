// Package reconcile implements the page reconciler: the only path by which a dirty in-memory
// B-tree page becomes one or more bit-exact on-disk images. It owns the scratch buffer arena,
// the overflow tracker, the boundary list, the key/value cell builder and the reconciler core
// itself (splits, run-length encoding, page-type-specific walks), grounded throughout on the
// sharedcode/sop btree package's node/item model and its distribute/promote terminology.
package reconcile
