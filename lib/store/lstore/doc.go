// Package lstore implements the local, single-node key-value store based on
// the store.IStore interface. It is a thin versioning layer around any
// db.KVDB implementation; whether data survives a restart depends on the
// engine the store.DBFactory creates (pebbledb does, memdb does not).
//
// Implementation Details:
//
//   - Value Encoding: Every value is stored as an 8 byte big-endian version
//     followed by the raw value bytes.
//
//   - Versions: Set stamps values from a hybrid clock that follows wall time
//     in nanoseconds but never repeats or goes backwards
//     (next = max(now, last+1)). SetIfNewer writes a caller supplied version
//     and advances the clock past it, so later local writes always win over
//     migrated ones.
//
//   - Reserved Keys: Keys starting with store.MetaPrefix are internal. The
//     owned key range lives at "\xffkv_range" as JSON. Client writes to the
//     reserved space are refused and scans are clamped below it.
//
// Thread Safety:
//
//	All operations are thread-safe. Writes are serialized by a mutex so the
//	read-compare-write of SetIfNewer is atomic with respect to Set and Delete.
//	Reads go straight to the db.KVDB, which provides its own guarantees.
//
// Usage Example:
//
//	st, err := lstore.NewLocalStore(func() (db.KVDB, error) {
//	    return pebbledb.Open(pebbledb.Options{Dir: "./data"})
//	})
//
//	err = st.Set("user:1", []byte("alice"))
//	applied, err := st.SetIfNewer("user:2", []byte("bob"), 42)
//	entries, err := st.Scan("user:", "user;", 100)
package lstore
