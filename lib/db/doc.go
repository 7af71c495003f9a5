// Package db provides a standardized interface for ordered key-value database
// implementations. Node data, range ownership and migration checkpoints all
// live in a KVDB.
//
// The package focuses on:
//   - A unified interface for ordered key-value operations
//   - Atomic (and, where supported, durable) write batches
//   - Feature discovery through capability flags
//   - Metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides point operations (Set, Get, Has, Delete), ordered range
//     scans (Scan over [start, end)), atomic batches (Apply) and metadata
//     retrieval (GetInfo).
//
//   - Mutation: One put or delete inside an atomic batch. The migrator commits
//     the new ownership ranges of both nodes and removes its checkpoint with a
//     single Apply.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. FeatureDurable marks
//     engines whose writes survive a crash once the call returned.
//
//   - Implementation Identifiers: "memdb" (google/btree, volatile) and
//     "pebble" (cockroachdb/pebble, durable).
//
// Ordering: keys are compared byte-wise, an empty end bound in Scan means
// unbounded above.
package db
