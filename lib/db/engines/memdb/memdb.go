package memdb

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/google/btree"
	"sync"
)

// degree of the underlying b-tree
const defaultDegree = 32

// --------------------------------------------------------------------------
// Tree items
// --------------------------------------------------------------------------

type item struct {
	key   string
	value []byte
}

func (a item) Less(b btree.Item) bool {
	return a.key < b.(item).key
}

// --------------------------------------------------------------------------
// MemDB
// --------------------------------------------------------------------------

// memDB is an ordered in-memory KVDB backed by a b-tree.
//
// Thread-safety: all methods are safe for concurrent use, a single RWMutex
// guards the tree.
type memDB struct {
	mu     sync.RWMutex
	tree   *btree.BTree
	size   int
	closed bool
}

// NewMemDB creates an empty in-memory database
func NewMemDB() db.KVDB {
	return &memDB{tree: btree.New(defaultDegree)}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (m *memDB) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return db.ErrClosed
	}
	m.set(key, value)
	return nil
}

func (m *memDB) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return db.ErrClosed
	}
	m.delete(key)
	return nil
}

func (m *memDB) Apply(batch []db.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return db.ErrClosed
	}
	for _, mut := range batch {
		if mut.Delete {
			m.delete(mut.Key)
		} else {
			m.set(mut.Key, mut.Value)
		}
	}
	return nil
}

func (m *memDB) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, db.ErrClosed
	}
	found := m.tree.Get(item{key: key})
	if found == nil {
		return nil, false, nil
	}
	return bytes.Clone(found.(item).value), true, nil
}

func (m *memDB) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, db.ErrClosed
	}
	return m.tree.Has(item{key: key}), nil
}

func (m *memDB) Scan(start, end string, limit int, fn db.ScanFunc) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return db.ErrClosed
	}

	count := 0
	visit := func(i btree.Item) bool {
		it := i.(item)
		if limit > 0 && count >= limit {
			return false
		}
		count++
		return fn(it.key, it.value)
	}

	if end == "" {
		m.tree.AscendGreaterOrEqual(item{key: start}, visit)
	} else {
		m.tree.AscendRange(item{key: start}, item{key: end}, visit)
	}
	return nil
}

func (m *memDB) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas | db.FeatureScan | db.FeatureBatch
	return feature&supported == feature
}

func (m *memDB) GetInfo() db.DatabaseInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var features []db.Feature
	for _, f := range db.AllFeatures {
		if m.SupportsFeature(f) {
			features = append(features, f)
		}
	}
	return db.DatabaseInfo{
		SizeBytes:         m.size,
		Keys:              m.tree.Len(),
		DbType:            db.ImplMemDB,
		SupportedFeatures: features,
		Metadata:          map[string]int{"degree": defaultDegree},
	}
}

func (m *memDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tree = btree.New(defaultDegree)
	m.size = 0
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods (caller holds the write lock)
// --------------------------------------------------------------------------

func (m *memDB) set(key string, value []byte) {
	prev := m.tree.ReplaceOrInsert(item{key: key, value: bytes.Clone(value)})
	if prev != nil {
		m.size -= len(key) + len(prev.(item).value)
	}
	m.size += len(key) + len(value)
}

func (m *memDB) delete(key string) {
	prev := m.tree.Delete(item{key: key})
	if prev != nil {
		m.size -= len(key) + len(prev.(item).value)
	}
}
