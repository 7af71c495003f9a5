package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/cockroachdb/errors"
	"sync"
	"testing"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("ScanOrder", func(t *testing.T) {
			testScanOrder(t, factory())
		})

		t.Run("ScanBounds", func(t *testing.T) {
			testScanBounds(t, factory())
		})

		t.Run("ScanStop", func(t *testing.T) {
			testScanStop(t, factory())
		})

		t.Run("Apply", func(t *testing.T) {
			testApply(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte) {
	t.Helper()
	if err := database.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

// collect scans [start, end) and returns the keys in the order they were visited
func collect(t testing.TB, database db.KVDB, start, end string, limit int) []string {
	t.Helper()
	var keys []string
	err := database.Scan(start, end, limit, func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		t.Fatalf("Scan(%q, %q, %d) failed: %v", start, end, limit, err)
	}
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, database, testKey, testValue1)

	result, exists, err := database.Get(testKey)
	if err != nil || !exists {
		t.Errorf("Expected key %s to exist after Set (err=%v)", testKey, err)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, database, testKey, testValue2)

	result, exists, _ = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists, err = database.Get("nonexistent-key")
	if err != nil || exists {
		t.Errorf("Expected nonexistent key to return exists=false (err=%v)", err)
	}

	// returned values are copies
	retrievedValue, _, _ := database.Get(testKey)
	retrievedValue[0] = 'X'
	again, _, _ := database.Get(testKey)
	if !bytes.Equal(again, testValue2) {
		t.Errorf("Modifying a returned value changed the stored value: %s", again)
	}

	// stored values are copies
	input := []byte("mutable")
	mustSet(t, database, "copy-key", input)
	input[0] = 'X'
	stored, _, _ := database.Get("copy-key")
	if !bytes.Equal(stored, []byte("mutable")) {
		t.Errorf("Modifying the input slice changed the stored value: %s", stored)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	mustSet(t, database, "a", []byte("1"))
	if err := database.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists, _ := database.Get("a"); exists {
		t.Error("Expected key to be gone after Delete")
	}

	// deleting a missing key is not an error
	if err := database.Delete("missing"); err != nil {
		t.Errorf("Delete of a missing key failed: %v", err)
	}

	// a deleted key can be set again
	mustSet(t, database, "a", []byte("2"))
	if v, exists, _ := database.Get("a"); !exists || string(v) != "2" {
		t.Errorf("Expected re-set key to hold 2, got %q (exists=%t)", v, exists)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	mustSet(t, database, "present", []byte("x"))
	if ok, err := database.Has("present"); err != nil || !ok {
		t.Errorf("Expected Has(present)=true (err=%v)", err)
	}
	if ok, err := database.Has("absent"); err != nil || ok {
		t.Errorf("Expected Has(absent)=false (err=%v)", err)
	}
	_ = database.Delete("present")
	if ok, _ := database.Has("present"); ok {
		t.Error("Expected Has to return false after Delete")
	}
}

func testScanOrder(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	for _, k := range []string{"b", "a", "c", "ab", "\xff", "B"} {
		mustSet(t, database, k, []byte("v-"+k))
	}

	got := collect(t, database, "", "", 0)
	want := []string{"B", "a", "ab", "b", "c", "\xff"}
	if !equalKeys(got, want) {
		t.Errorf("Expected byte-wise order %q, got %q", want, got)
	}

	// values are delivered with their keys
	err := database.Scan("ab", "b", 0, func(key string, value []byte) bool {
		if string(value) != "v-"+key {
			t.Errorf("Value for %q is %q", key, value)
		}
		return true
	})
	if err != nil {
		t.Errorf("Scan failed: %v", err)
	}
}

func testScanBounds(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	for i := 0; i < 10; i++ {
		mustSet(t, database, fmt.Sprintf("key-%02d", i), []byte{byte(i)})
	}

	tests := []struct {
		name       string
		start, end string
		limit      int
		want       []string
	}{
		{"HalfOpen", "key-03", "key-06", 0, []string{"key-03", "key-04", "key-05"}},
		{"UnboundedAbove", "key-08", "", 0, []string{"key-08", "key-09"}},
		{"Limit", "key-02", "", 2, []string{"key-02", "key-03"}},
		{"StartBetweenKeys", "key-04x", "key-07", 0, []string{"key-05", "key-06"}},
		{"EmptyRange", "key-05", "key-05", 0, nil},
		{"PastEnd", "zzz", "", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, database, tt.start, tt.end, tt.limit)
			if !equalKeys(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func testScanStop(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	for i := 0; i < 5; i++ {
		mustSet(t, database, fmt.Sprintf("k%d", i), nil)
	}

	var seen []string
	err := database.Scan("", "", 0, func(key string, _ []byte) bool {
		seen = append(seen, key)
		return len(seen) < 2
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !equalKeys(seen, []string{"k0", "k1"}) {
		t.Errorf("Expected scan to stop after two keys, got %q", seen)
	}
}

func testApply(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureBatch)

	mustSet(t, database, "old", []byte("1"))
	mustSet(t, database, "keep", []byte("1"))

	err := database.Apply([]db.Mutation{
		db.Put("new-a", []byte("a")),
		db.Del("old"),
		db.Put("new-b", []byte("b")),
		db.Put("new-a", []byte("a2")), // later mutations win
		db.Del("missing"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, exists, _ := database.Get("old"); exists {
		t.Error("Expected old to be deleted by the batch")
	}
	if v, _, _ := database.Get("new-a"); string(v) != "a2" {
		t.Errorf("Expected new-a=a2, got %q", v)
	}
	if v, _, _ := database.Get("new-b"); string(v) != "b" {
		t.Errorf("Expected new-b=b, got %q", v)
	}
	if v, _, _ := database.Get("keep"); string(v) != "1" {
		t.Errorf("Expected keep to be untouched, got %q", v)
	}

	if err := database.Apply(nil); err != nil {
		t.Errorf("Empty Apply failed: %v", err)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	// empty value
	mustSet(t, database, "empty", []byte{})
	if v, exists, _ := database.Get("empty"); !exists || len(v) != 0 {
		t.Errorf("Expected empty value to exist, got %q (exists=%t)", v, exists)
	}

	// binary key and value
	binKey := "\x00\xff\x01bin"
	binValue := []byte{0, 1, 2, '\n', '\r', 255}
	mustSet(t, database, binKey, binValue)
	if v, _, _ := database.Get(binKey); !bytes.Equal(v, binValue) {
		t.Errorf("Binary value mismatch: %v", v)
	}

	// large value
	large := bytes.Repeat([]byte("x"), 1<<20)
	mustSet(t, database, "large", large)
	if v, _, _ := database.Get("large"); !bytes.Equal(v, large) {
		t.Error("Large value mismatch")
	}
}

func testClosed(t *testing.T, database db.KVDB) {
	if err := database.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := database.Set("k", nil); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Set, got %v", err)
	}
	if _, _, err := database.Get("k"); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Get, got %v", err)
	}
	if err := database.Scan("", "", 0, func(string, []byte) bool { return true }); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Scan, got %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func testConcurrent(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-%03d", w, i)
				if err := database.Set(key, []byte(key)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if _, _, err := database.Get(key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if got := len(collect(t, database, "", "", 0)); got != workers*perWorker {
		t.Errorf("Expected %d keys, got %d", workers*perWorker, got)
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	info := database.GetInfo()
	if info.DbType == "" {
		t.Error("Expected a database type")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Info lists unsupported feature %s", f)
		}
	}
}
