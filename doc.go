// Package storeengine contains the shared primitives used across the on-disk ordered
// key/value engine: opaque identifiers, the error taxonomy, structured logging bootstrap,
// retry helpers and per-table configuration. The two hard subsystems -- the page reconciler
// and the data handle registry -- live in the reconcile and handle packages respectively;
// this package exists so neither has to depend on the other for the things they both need.
package storeengine
