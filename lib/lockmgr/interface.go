package lockmgr

// ILockManager defines the interface for a lease provider.
type ILockManager interface {
	// AcquireLock acquires the lock for the given key on behalf of ownerID with
	// an optional timeout in seconds (0 = never expires). Acquiring a lock the
	// same owner already holds renews it. An expired lock of another owner is
	// taken over.
	// Return a boolean indicating whether the lock is held by ownerID, and an error if any.
	AcquireLock(key string, ownerID []byte, timeout uint64) (ok bool, err error)

	// ReleaseLock releases the lock for the given key.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method will also return True is the lock did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)

	// Holder returns the current owner of the lock, if any unexpired one exists.
	Holder(key string) (ownerID []byte, held bool, err error)
}
