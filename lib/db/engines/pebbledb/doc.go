// Package pebbledb provides the durable db.KVDB implementation on top of
// cockroachdb/pebble.
//
// Plain writes use pebble.Sync unless Options.NoSync is set. Apply always
// commits its batch with pebble.Sync, so migration checkpoints and ownership
// ranges are on stable storage once the call returns. Options.InMemory swaps
// the file system for vfs.NewMem(), which the tests use.
package pebbledb
