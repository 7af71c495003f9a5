package pebbledb

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lni/dragonboat/v4/logger"
	"sync/atomic"
)

var Logger = logger.GetLogger("db")

// Options configures a pebble database
type Options struct {
	// Dir is the data directory
	Dir string
	// InMemory keeps all files in a memory file system (tests)
	InMemory bool
	// NoSync disables fsync on plain writes. Apply batches are always synced.
	NoSync bool
}

// pebbleDB is a durable KVDB on top of cockroachdb/pebble.
//
// Thread-safety: all methods are safe for concurrent use, pebble handles its
// own synchronization.
type pebbleDB struct {
	db        *pebble.DB
	dir       string
	writeOpts *pebble.WriteOptions
	closed    atomic.Bool
}

// Open opens (or creates) a pebble database
func Open(opts Options) (db.KVDB, error) {
	pebbleOpts := &pebble.Options{}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(opts.Dir, pebbleOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble database in %q", opts.Dir)
	}

	writeOpts := pebble.Sync
	if opts.NoSync {
		writeOpts = pebble.NoSync
	}

	Logger.Infof("opened pebble database in %q (in-memory=%t, sync=%t)", opts.Dir, opts.InMemory, !opts.NoSync)
	return &pebbleDB{db: pdb, dir: opts.Dir, writeOpts: writeOpts}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (p *pebbleDB) Set(key string, value []byte) error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	return errors.Wrapf(p.db.Set([]byte(key), value, p.writeOpts), "set %q", key)
}

func (p *pebbleDB) Delete(key string) error {
	if p.closed.Load() {
		return db.ErrClosed
	}
	return errors.Wrapf(p.db.Delete([]byte(key), p.writeOpts), "delete %q", key)
}

func (p *pebbleDB) Apply(batch []db.Mutation) error {
	if p.closed.Load() {
		return db.ErrClosed
	}

	b := p.db.NewBatch()
	defer b.Close()

	for _, mut := range batch {
		var err error
		if mut.Delete {
			err = b.Delete([]byte(mut.Key), nil)
		} else {
			err = b.Set([]byte(mut.Key), mut.Value, nil)
		}
		if err != nil {
			return errors.Wrapf(err, "stage mutation of %q", mut.Key)
		}
	}
	return errors.Wrap(b.Commit(pebble.Sync), "commit batch")
}

func (p *pebbleDB) Get(key string) ([]byte, bool, error) {
	if p.closed.Load() {
		return nil, false, db.ErrClosed
	}

	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get %q", key)
	}
	defer closer.Close()
	return bytes.Clone(value), true, nil
}

func (p *pebbleDB) Has(key string) (bool, error) {
	_, ok, err := p.Get(key)
	return ok, err
}

func (p *pebbleDB) Scan(start, end string, limit int, fn db.ScanFunc) error {
	if p.closed.Load() {
		return db.ErrClosed
	}

	iterOpts := &pebble.IterOptions{LowerBound: []byte(start)}
	if end != "" {
		iterOpts.UpperBound = []byte(end)
	}
	iter, err := p.db.NewIter(iterOpts)
	if err != nil {
		return errors.Wrap(err, "create iterator")
	}

	count := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		if limit > 0 && count >= limit {
			break
		}
		count++
		if !fn(string(iter.Key()), iter.Value()) {
			break
		}
	}

	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return errors.Wrap(err, "scan")
	}
	return errors.Wrap(iter.Close(), "close iterator")
}

func (p *pebbleDB) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas | db.FeatureScan | db.FeatureBatch | db.FeatureDurable
	return feature&supported == feature
}

func (p *pebbleDB) GetInfo() db.DatabaseInfo {
	var features []db.Feature
	for _, f := range db.AllFeatures {
		if p.SupportsFeature(f) {
			features = append(features, f)
		}
	}

	info := db.DatabaseInfo{
		DbType:            db.ImplPebble,
		SupportedFeatures: features,
		Keys:              -1, // unknown without a full scan
	}
	if !p.closed.Load() {
		m := p.db.Metrics()
		info.SizeBytes = int(m.DiskSpaceUsage())
		info.Metadata = map[string]interface{}{
			"dir":          p.dir,
			"read_amp":     m.ReadAmp(),
			"memtable_mib": m.MemTable.Size / (1024 * 1024),
		}
	}
	return info
}

func (p *pebbleDB) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return errors.Wrap(p.db.Close(), "close pebble database")
}
