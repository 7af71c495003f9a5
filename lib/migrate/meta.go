package migrate

import (
	"encoding/json"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Metadata layout
// --------------------------------------------------------------------------

// All metadata lives under the reserved prefix of the metadata database:
//
//	\xffrange/<node>          JSON KeyRange owned by node
//	\xffmigrate/<src>/<dst>   JSON checkpoint of the task moving src -> dst
//	\xfflock/<node>           lease of the task currently migrating node

func rangeKey(node string) string {
	return store.MetaPrefix + "range/" + node
}

func checkpointKey(src, dst string) string {
	return store.MetaPrefix + "migrate/" + src + "/" + dst
}

func leaseKey(node string) string {
	return store.MetaPrefix + "lock/" + node
}

// checkpoint is the persisted progress of a task. Key is the last key whose
// copy the destination confirmed; it may still be present on the source.
type checkpoint struct {
	Move  KeyRange `json:"move"`
	Key   string   `json:"key"`
	Keys  int64    `json:"keys"`
	Bytes int64    `json:"bytes"`
}

func loadJSON(meta db.KVDB, key string, v any) (bool, error) {
	raw, ok, err := meta.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrapf(err, "decode metadata %q", key)
	}
	return true, nil
}

func putJSON(key string, v any) (db.Mutation, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return db.Mutation{}, errors.Wrapf(err, "encode metadata %q", key)
	}
	return db.Put(key, raw), nil
}

func loadCheckpoint(meta db.KVDB, src, dst string) (*checkpoint, error) {
	var cp checkpoint
	ok, err := loadJSON(meta, checkpointKey(src, dst), &cp)
	if err != nil || !ok {
		return nil, err
	}
	return &cp, nil
}

// saveCheckpoint writes cp with a synced batch
func saveCheckpoint(meta db.KVDB, src, dst string, cp checkpoint) error {
	m, err := putJSON(checkpointKey(src, dst), cp)
	if err != nil {
		return err
	}
	return meta.Apply([]db.Mutation{m})
}

// loadRange returns the recorded range of node or fallback when none is recorded
func loadRange(meta db.KVDB, node string, fallback KeyRange) (KeyRange, error) {
	var r KeyRange
	ok, err := loadJSON(meta, rangeKey(node), &r)
	if err != nil {
		return KeyRange{}, err
	}
	if !ok {
		return fallback, nil
	}
	return r, nil
}
