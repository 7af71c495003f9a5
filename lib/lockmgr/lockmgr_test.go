package lockmgr

import (
	"github.com/ValentinKolb/rKV/lib/db/engines/memdb"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager(memdb.NewMemDB())
	alice, bob := OwnerID("alice"), OwnerID("bob")

	ok, err := lm.AcquireLock("l", alice, 0)
	if err != nil || !ok {
		t.Fatalf("Expected alice to acquire, got %t (err=%v)", ok, err)
	}
	if ok, _ := lm.AcquireLock("l", alice, 0); !ok {
		t.Error("Expected alice to renew her own lock")
	}
	if ok, _ := lm.AcquireLock("l", bob, 0); ok {
		t.Error("Expected bob to be refused")
	}
	if ok, _ := lm.ReleaseLock("l", bob); ok {
		t.Error("Expected bob not to release alice's lock")
	}

	owner, held, err := lm.Holder("l")
	if err != nil || !held || string(owner) != string(alice) {
		t.Errorf("Expected alice as holder, got held=%t err=%v", held, err)
	}

	if ok, _ := lm.ReleaseLock("l", alice); !ok {
		t.Error("Expected alice to release")
	}
	if ok, _ := lm.ReleaseLock("l", alice); !ok {
		t.Error("Expected release of a free lock to succeed")
	}
	if ok, _ := lm.AcquireLock("l", bob, 0); !ok {
		t.Error("Expected bob to acquire the free lock")
	}
}

func TestExpiry(t *testing.T) {
	impl := NewLockManager(memdb.NewMemDB()).(*lockMgrImpl)
	now := time.Unix(1000, 0)
	impl.now = func() time.Time { return now }

	if ok, _ := impl.AcquireLock("l", OwnerID("a"), 10); !ok {
		t.Fatal("Expected a to acquire")
	}
	now = now.Add(5 * time.Second)
	if ok, _ := impl.AcquireLock("l", OwnerID("b"), 10); ok {
		t.Fatal("Expected b to be refused before expiry")
	}
	now = now.Add(6 * time.Second)
	if _, held, _ := impl.Holder("l"); held {
		t.Error("Expected expired lock to have no holder")
	}
	if ok, _ := impl.AcquireLock("l", OwnerID("b"), 0); !ok {
		t.Fatal("Expected b to take over the expired lock")
	}
}

func TestOwnerID(t *testing.T) {
	if string(OwnerID("a", "b")) != string(OwnerID("a", "b")) {
		t.Error("Expected OwnerID to be deterministic")
	}
	if string(OwnerID("ab")) == string(OwnerID("a", "b")) {
		t.Error("Expected part boundaries to matter")
	}
}
