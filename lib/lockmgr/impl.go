package lockmgr

import (
	"bytes"
	"encoding/json"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"time"
)

var Logger = logger.GetLogger("lockmgr")

// keyMutexes serializes the read-check-write of each lock key across all
// managers of the process
var keyMutexes = xsync.NewMapOf[string, *sync.Mutex]()

type lockMgrImpl struct {
	db  db.KVDB
	now func() time.Time
}

// NewLockManager creates a lock manager that keeps its leases in database.
// The database should support FeatureDurable for leases to survive restarts.
func NewLockManager(database db.KVDB) ILockManager {
	return &lockMgrImpl{
		db:  database,
		now: time.Now,
	}
}

func lockKey(key string) *sync.Mutex {
	mu, _ := keyMutexes.LoadOrStore(key, &sync.Mutex{})
	return mu
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr/interface.go)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) AcquireLock(key string, ownerID []byte, timeout uint64) (bool, error) {
	mu := lockKey(key)
	mu.Lock()
	defer mu.Unlock()

	now := lm.now()
	raw, found, err := lm.db.Get(key)
	if err != nil {
		return false, err
	}
	if found {
		current, err := decodeLease(raw)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(current.Owner, ownerID) && !current.expired(now) {
			return false, nil
		}
		if !bytes.Equal(current.Owner, ownerID) {
			Logger.Warningf("taking over expired lock %q", key)
		}
	}

	l := lease{Owner: ownerID}
	if timeout > 0 {
		l.Expires = now.Add(time.Duration(timeout) * time.Second).UnixNano()
	}
	value, err := json.Marshal(l)
	if err != nil {
		return false, err
	}
	if err := lm.db.Apply([]db.Mutation{db.Put(key, value)}); err != nil {
		return false, err
	}
	return true, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	mu := lockKey(key)
	mu.Lock()
	defer mu.Unlock()

	// Check if the lock exists
	raw, ok, err := lm.db.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}
	current, err := decodeLease(raw)
	if err != nil {
		return false, err
	}

	// Check if the lock is owned by us
	if !bytes.Equal(ownerID, current.Owner) && !current.expired(lm.now()) {
		return false, nil
	}

	err = lm.db.Apply([]db.Mutation{db.Del(key)})
	return err == nil, err
}

func (lm *lockMgrImpl) Holder(key string) ([]byte, bool, error) {
	raw, ok, err := lm.db.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	current, err := decodeLease(raw)
	if err != nil {
		return nil, false, err
	}
	if current.expired(lm.now()) {
		return nil, false, nil
	}
	return current.Owner, true, nil
}
