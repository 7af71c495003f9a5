// Package memdb provides a volatile, ordered db.KVDB implementation backed by
// a google/btree B-tree of degree 32. It supports point operations, ordered
// scans and atomic batches but is not durable; use it for tests and for
// nodes that do not need to survive a restart.
package memdb
