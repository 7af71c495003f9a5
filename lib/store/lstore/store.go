package lstore

import (
	"encoding/binary"
	"encoding/json"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
)

var Logger = logger.GetLogger("store")

// rangeKey holds the JSON encoded key range owned by this node
const rangeKey = store.MetaPrefix + "kv_range"

// versionLen is the size of the big-endian version prefix of every stored value
const versionLen = 8

type kvRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type storeImpl struct {
	db    db.KVDB
	clock *hybridClock

	// writeMu serializes read-compare-write sequences
	writeMu sync.Mutex
}

// NewLocalStore creates a new local store instance on top of the db created
// by factory. The store is not replicated; it is the storage of one node.
func NewLocalStore(factory store.DBFactory) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, errors.Wrap(err, "create database")
	}
	required := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureScan
	if !database.SupportsFeature(required) {
		_ = database.Close()
		return nil, store.NewError(store.RetCUnsupportedOperation, "database lacks set/get/delete/scan support")
	}
	return &storeImpl{db: database, clock: newHybridClock()}, nil
}

// --------------------------------------------------------------------------
// Value encoding
// --------------------------------------------------------------------------

func encodeValue(version uint64, value []byte) []byte {
	out := make([]byte, versionLen+len(value))
	binary.BigEndian.PutUint64(out, version)
	copy(out[versionLen:], value)
	return out
}

func decodeValue(raw []byte) (uint64, []byte, error) {
	if len(raw) < versionLen {
		return 0, nil, store.NewError(store.RetCInternalError, "stored value lacks version header")
	}
	return binary.BigEndian.Uint64(raw), raw[versionLen:], nil
}

func checkKey(key string) error {
	if store.IsMetaKey(key) {
		return store.NewError(store.RetCInvalidOperation, "key uses the reserved prefix")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Set(key, encodeValue(s.clock.Next(), value))
}

func (s *storeImpl) SetIfNewer(key string, value []byte, version uint64) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, ok, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if ok {
		current, _, err := decodeValue(raw)
		if err != nil {
			return false, err
		}
		if current >= version {
			return false, nil
		}
	}

	if err := s.db.Set(key, encodeValue(version, value)); err != nil {
		return false, err
	}
	s.clock.Observe(version)
	return true, nil
}

func (s *storeImpl) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Delete(key)
}

func (s *storeImpl) DeleteIfNotNewer(key string, version uint64) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, ok, err := s.db.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}
	current, _, err := decodeValue(raw)
	if err != nil {
		return false, err
	}
	if current > version {
		return false, nil
	}
	if err := s.db.Delete(key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if store.IsMetaKey(key) {
		return nil, false, nil
	}
	raw, ok, err := s.db.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	_, value, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if store.IsMetaKey(key) {
		return false, nil
	}
	if !s.db.SupportsFeature(db.FeatureHas) {
		_, ok, err := s.db.Get(key)
		return ok, err
	}
	return s.db.Has(key)
}

func (s *storeImpl) Scan(start, end string, limit int) ([]store.Entry, error) {
	// clamp the scan to the client key space
	if end == "" || end > store.MetaPrefix {
		end = store.MetaPrefix
	}
	if start >= end {
		return nil, nil
	}

	var entries []store.Entry
	var decodeErr error
	err := s.db.Scan(start, end, limit, func(key string, raw []byte) bool {
		version, value, err := decodeValue(raw)
		if err != nil {
			decodeErr = errors.Wrapf(err, "key %q", key)
			return false
		}
		entries = append(entries, store.Entry{
			Key:     key,
			Value:   append([]byte(nil), value...),
			Version: version,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, decodeErr
}

func (s *storeImpl) KVRange() (string, string, error) {
	raw, ok, err := s.db.Get(rangeKey)
	if err != nil {
		return "", "", err
	}
	if !ok {
		// a node that was never assigned a range owns everything
		return "", "", nil
	}
	var r kvRange
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", "", errors.Wrap(err, "decode owned range")
	}
	return r.Min, r.Max, nil
}

func (s *storeImpl) SetKVRange(min, max string) error {
	if max != "" && min > max {
		return store.NewError(store.RetCInvalidOperation, "range min is greater than max")
	}
	raw, err := json.Marshal(kvRange{Min: min, Max: max})
	if err != nil {
		return err
	}
	if err := s.db.Apply([]db.Mutation{db.Put(rangeKey, raw)}); err != nil {
		return err
	}
	Logger.Infof("owned key range is now [%q, %q)", min, max)
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

func (s *storeImpl) Close() error {
	return s.db.Close()
}
