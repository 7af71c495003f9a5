// Package store provides the node-level interface for key-value storage with
// versioned values, ordered scans and range ownership. It serves as an
// abstraction layer over the lower-level db.KVDB implementations, adding
// version management, the reserved internal key space and standardized error
// reporting.
//
// The package focuses on:
//   - A unified interface (IStore) for the commands a node serves
//   - Pluggable storage backend architecture through DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: Set / SetIfNewer / Delete / Get / Has / Scan over
//     versioned entries, plus KVRange / SetKVRange for the key interval the
//     node owns. SetIfNewer makes re-applying a migrated key a no-op, Delete
//     is delete-if-present, so migration steps can be repeated safely.
//
//   - Reserved keys: keys starting with MetaPrefix ("\xff") hold internal
//     metadata. Client writes to them are refused with RetCInvalidOperation
//     and scans never return them.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. CodeOf extracts the code from any error chain
//     so the server can answer client_error vs. error.
//
// Implementations:
//
//   - Local Store (lstore): Versioned store over one db.KVDB, available in
//     the "github.com/ValentinKolb/rKV/lib/store/lstore" package.
package store
