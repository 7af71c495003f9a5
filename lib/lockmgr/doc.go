// Package lockmgr implements leases stored in a db.KVDB. The migrate package
// uses them to make sure only one migration task works on a node at a time.
//
// The lockmgr only ever stores in the provided database and has no other
// persistent state. It is safe to create it multiple times on the same
// database; all managers of a process share one mutex per lock key.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Renewal by acquiring a held lock again with the same owner
//   - Optional expiration through a timeout in seconds
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	A lease is a JSON value {"owner": ..., "expires": ...} under the lock key.
//	AcquireLock reads the current lease and writes its own only if the key is
//	free, expired or already held by the same owner. Writes go through
//	db.KVDB.Apply so durable engines sync them before returning.
//
//	Owner IDs are opaque bytes. OwnerID derives a stable one from a task
//	description, so a task that restarts after a crash owns its locks again
//	instead of waiting for them to expire.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(metaDB)
//	owner := lockmgr.OwnerID("migrate", "node-a", "node-b")
//
//	ok, err := lm.AcquireLock("\xfflock/node-a", owner, 0)
//	if err != nil || !ok {
//	    // someone else is migrating
//	}
//	defer lm.ReleaseLock("\xfflock/node-a", owner)
package lockmgr
