package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/rKV/lib/db"
	"math/rand"
	"testing"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory())
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Apply", func(b *testing.B) {
		benchmarkApply(b, factory())
	})

	b.Run("Scan100", func(b *testing.B) {
		benchmarkScan(b, factory(), 100)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := []byte("benchmark-value")
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := rand.Int()
		for pb.Next() {
			_ = database.Set(fmt.Sprintf("key-%d", counter), value)
			counter++
		}
	})
}

// Benchmark for Set with a 64 KiB value
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := bytes.Repeat([]byte("x"), 64*1024)
	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Set(fmt.Sprintf("large-%d", i%1024), value)
	}
}

// Benchmark for Get on a prefilled database
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const keys = 10_000
	for i := 0; i < keys; i++ {
		_ = database.Set(fmt.Sprintf("key-%d", i), []byte("value"))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			_, _, _ = database.Get(fmt.Sprintf("key-%d", r.Intn(keys)))
		}
	})
}

// Benchmark for atomic batches of ten mutations
func benchmarkApply(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureBatch)

	batch := make([]db.Mutation, 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := range batch {
			batch[j] = db.Put(fmt.Sprintf("batch-%d-%d", i%100, j), []byte("value"))
		}
		_ = database.Apply(batch)
	}
}

// Benchmark for ordered scans of n entries
func benchmarkScan(b *testing.B, database db.KVDB, n int) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureScan)

	for i := 0; i < 10*n; i++ {
		_ = database.Set(fmt.Sprintf("scan-%06d", i), []byte("value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := fmt.Sprintf("scan-%06d", rand.Intn(9*n))
		_ = database.Scan(start, "", n, func(string, []byte) bool { return true })
	}
}
