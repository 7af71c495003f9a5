package migrate

import (
	"context"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/lockmgr"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"strconv"
	"sync"
)

var Logger = logger.GetLogger("migrate")

var (
	// ErrMigrationStep marks a failed key copy or delete. The checkpoint did
	// not advance past the failing key; calling MoveSome again retries it.
	ErrMigrationStep = errors.New("migrate: step failed")
	// ErrInvalidPlan marks a configuration the migrator refuses to run
	ErrInvalidPlan = errors.New("migrate: invalid plan")
	// ErrBusy is returned when another task holds the lease of a node
	ErrBusy = errors.New("migrate: node is busy with another migration")
	// ErrNotDrained is returned by Finish while the source still holds keys of the moved interval
	ErrNotDrained = errors.New("migrate: source still holds keys of the moved range")
)

const (
	DefaultBatchKeys  = 100
	DefaultBatchBytes = 1 << 20
)

// Requester performs one synchronous request/response exchange with a node.
// *link.Link satisfies it.
type Requester interface {
	Request(values ...[]byte) ([][]byte, error)
}

// Node is one side of a migration
type Node struct {
	// Name identifies the node in the metadata keys
	Name string
	Link Requester
	// Range is the range the node owns before the first migration that
	// involves it. Ignored once a range is recorded in the metadata.
	Range KeyRange
}

// Config describes one migration task
type Config struct {
	Source Node
	Dest   Node
	// Move is the interval to move. It must share an edge with the source
	// range and be adjacent to the destination range (or the destination
	// range must be empty).
	Move KeyRange
	// Meta holds checkpoint, ranges and leases. Use a durable engine.
	Meta db.KVDB
	// BatchKeys caps the keys handled by one MoveSome (default 100)
	BatchKeys int
	// BatchBytes stops a MoveSome early once this many key+value bytes were moved (default 1 MiB)
	BatchBytes int64
	// LeaseTimeout in seconds; 0 means leases never expire
	LeaseTimeout uint64
}

func (c *Config) withDefaults() {
	if c.BatchKeys <= 0 {
		c.BatchKeys = DefaultBatchKeys
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = DefaultBatchBytes
	}
}

// State of a migration task
type State string

const (
	StateInit   State = "init"
	StateMoving State = "moving"
	StateDone   State = "done"
	StateFailed State = "failed"
)

// Status is a snapshot of a task's progress
type Status struct {
	State         State
	Move          KeyRange
	Source        KeyRange
	Dest          KeyRange
	Checkpoint    string
	HasCheckpoint bool
	KeysMoved     int64
	BytesMoved    int64
	Finished      bool
}

// Migrator moves the keys of one interval from a source to a destination
// node. It is driven serially by one caller; it is not safe for concurrent use.
type Migrator struct {
	cfg   Config
	locks lockmgr.ILockManager
	owner []byte

	// mu guards the fields below for Status
	mu         sync.Mutex
	state      State
	cp         *checkpoint
	srcRange   KeyRange
	dstRange   KeyRange
	finished   bool
	leasesHeld bool
}

// New validates cfg, acquires the leases of both nodes and loads the
// persisted checkpoint and ranges. Without a checkpoint the cursor starts at
// cfg.Move.Min.
func New(cfg Config) (*Migrator, error) {
	cfg.withDefaults()
	if cfg.Meta == nil || cfg.Source.Link == nil || cfg.Dest.Link == nil {
		return nil, errors.Mark(errors.New("metadata database and both links are required"), ErrInvalidPlan)
	}
	if cfg.Source.Name == "" || cfg.Dest.Name == "" || cfg.Source.Name == cfg.Dest.Name {
		return nil, errors.Mark(errors.New("source and destination need distinct names"), ErrInvalidPlan)
	}
	if !cfg.Move.Valid() || cfg.Move.Empty() {
		return nil, errors.Mark(errors.Newf("move range %s is empty or invalid", cfg.Move), ErrInvalidPlan)
	}

	m := &Migrator{
		cfg:   cfg,
		locks: lockmgr.NewLockManager(cfg.Meta),
		owner: lockmgr.OwnerID("migrate", cfg.Source.Name, cfg.Dest.Name),
		state: StateInit,
	}
	if err := m.acquireLeases(); err != nil {
		return nil, err
	}
	if err := m.load(); err != nil {
		m.releaseLeases()
		return nil, err
	}
	return m, nil
}

func (m *Migrator) load() error {
	src, dst := m.cfg.Source, m.cfg.Dest

	cp, err := loadCheckpoint(m.cfg.Meta, src.Name, dst.Name)
	if err != nil {
		return err
	}
	if cp != nil && cp.Move != m.cfg.Move {
		return errors.Mark(errors.Newf("checkpoint belongs to move %s, not %s", cp.Move, m.cfg.Move), ErrInvalidPlan)
	}
	srcRange, err := loadRange(m.cfg.Meta, src.Name, src.Range)
	if err != nil {
		return err
	}
	dstRange, err := loadRange(m.cfg.Meta, dst.Name, dst.Range)
	if err != nil {
		return err
	}

	m.cp, m.srcRange, m.dstRange = cp, srcRange, dstRange
	m.finished = cp == nil && !srcRange.Overlaps(m.cfg.Move) && dstRange.Covers(m.cfg.Move)
	if m.finished {
		m.state = StateDone
		Logger.Infof("move %s from %s to %s is already finished", m.cfg.Move, src.Name, dst.Name)
		return nil
	}

	if _, _, err := m.targetRanges(); err != nil {
		return err
	}
	if cp != nil {
		Logger.Infof("resuming move %s from %s to %s at %q (%d keys moved)",
			m.cfg.Move, src.Name, dst.Name, cp.Key, cp.Keys)
	}
	return nil
}

// targetRanges computes the ranges both nodes own after the move
func (m *Migrator) targetRanges() (KeyRange, KeyRange, error) {
	move := m.cfg.Move
	if !m.srcRange.Covers(move) || m.srcRange == move {
		return KeyRange{}, KeyRange{}, errors.Mark(
			errors.Newf("move %s must be a proper part of source range %s", move, m.srcRange), ErrInvalidPlan)
	}
	newSrc, ok := subtract(m.srcRange, move)
	if !ok {
		return KeyRange{}, KeyRange{}, errors.Mark(
			errors.Newf("move %s does not share an edge with source range %s", move, m.srcRange), ErrInvalidPlan)
	}
	if m.dstRange.Overlaps(move) {
		return KeyRange{}, KeyRange{}, errors.Mark(
			errors.Newf("destination range %s already overlaps move %s", m.dstRange, move), ErrInvalidPlan)
	}
	newDst, ok := union(m.dstRange, move)
	if !ok {
		return KeyRange{}, KeyRange{}, errors.Mark(
			errors.Newf("move %s is not adjacent to destination range %s", move, m.dstRange), ErrInvalidPlan)
	}
	return newSrc, newDst, nil
}

// --------------------------------------------------------------------------
// Leases
// --------------------------------------------------------------------------

func (m *Migrator) acquireLeases() error {
	var acquired []string
	for _, node := range []string{m.cfg.Source.Name, m.cfg.Dest.Name} {
		ok, err := m.locks.AcquireLock(leaseKey(node), m.owner, m.cfg.LeaseTimeout)
		if err == nil && !ok {
			err = errors.Mark(errors.Newf("node %s", node), ErrBusy)
		}
		if err != nil {
			for _, held := range acquired {
				_, _ = m.locks.ReleaseLock(leaseKey(held), m.owner)
			}
			return err
		}
		acquired = append(acquired, node)
	}
	m.leasesHeld = true
	return nil
}

func (m *Migrator) releaseLeases() {
	for _, node := range []string{m.cfg.Source.Name, m.cfg.Dest.Name} {
		if _, err := m.locks.ReleaseLock(leaseKey(node), m.owner); err != nil {
			Logger.Warningf("failed to release lease of %s: %v", node, err)
		}
	}
	m.leasesHeld = false
}

// Close releases the leases without finishing. The checkpoint stays, a later
// task with the same source and destination resumes from it.
func (m *Migrator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leasesHeld {
		m.releaseLeases()
	}
}

// --------------------------------------------------------------------------
// Moving
// --------------------------------------------------------------------------

type syncEntry struct {
	key     string
	value   []byte
	version string
}

// cursor is the first key the next batch may start at
func (m *Migrator) cursor() string {
	if m.cp != nil {
		return m.cp.Key
	}
	return m.cfg.Move.Min
}

// MoveSome moves the next batch of keys. It returns the estimated number of
// bytes moved (> 0), 0 when no key is left, or an error marked
// ErrMigrationStep. For each key it copies to the destination, persists the
// checkpoint and then deletes the key on the source unless it was rewritten
// in between. Once the cursor reaches the end it rescans the whole interval
// for keys written behind it.
func (m *Migrator) MoveSome(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return 0, nil
	}
	if !m.leasesHeld {
		return 0, errors.Mark(errors.New("migrator is closed"), ErrMigrationStep)
	}

	entries, err := m.fetchBatch(m.cursor())
	if err == nil && len(entries) == 0 && m.cursor() != m.cfg.Move.Min {
		// keys written behind the cursor while the move was running
		entries, err = m.fetchBatch(m.cfg.Move.Min)
	}
	if err != nil {
		return 0, m.fail(err, "scan source")
	}
	if len(entries) == 0 {
		m.state = StateDone
		return 0, nil
	}
	m.state = StateMoving

	var moved int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			if moved > 0 {
				break
			}
			return 0, m.fail(err, "cancelled")
		}
		if err := m.moveKey(e); err != nil {
			return 0, m.fail(err, "key %q", e.key)
		}
		size := int64(len(e.key) + len(e.value))
		moved += size
		metricKeysMoved.Inc()
		metricBytesMoved.Add(int(size))
		if moved >= m.cfg.BatchBytes {
			break
		}
	}
	if moved == 0 {
		moved = 1
	}
	return moved, nil
}

func (m *Migrator) fail(err error, format string, args ...interface{}) error {
	m.state = StateFailed
	metricStepErrors.Inc()
	err = errors.Mark(errors.Wrapf(err, format, args...), ErrMigrationStep)
	Logger.Warningf("move %s from %s to %s: %v", m.cfg.Move, m.cfg.Source.Name, m.cfg.Dest.Name, err)
	return err
}

func (m *Migrator) fetchBatch(from string) ([]syncEntry, error) {
	reply, err := m.cfg.Source.Link.Request(
		common.NewSyncScanRequest(from, m.cfg.Move.Max, m.cfg.BatchKeys)...)
	if err != nil {
		return nil, err
	}
	values, err := common.ParseOKReply(reply)
	if err != nil {
		return nil, err
	}
	if len(values)%3 != 0 {
		return nil, errors.Newf("sync_scan reply has %d values, want triples", len(values))
	}
	entries := make([]syncEntry, 0, len(values)/3)
	for i := 0; i < len(values); i += 3 {
		key := string(values[i])
		if !m.cfg.Move.Contains(key) {
			return nil, errors.Newf("sync_scan returned key %q outside %s", key, m.cfg.Move)
		}
		entries = append(entries, syncEntry{key: key, value: values[i+1], version: string(values[i+2])})
	}
	return entries, nil
}

func (m *Migrator) moveKey(e syncEntry) error {
	version, err := strconv.ParseUint(e.version, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad version %q", e.version)
	}

	// copy, confirmed by the destination
	reply, err := m.cfg.Dest.Link.Request(common.NewSyncSetRequest(e.key, e.value, version)...)
	if err != nil {
		return errors.Wrap(err, "copy")
	}
	if _, err := common.ParseOKReply(reply); err != nil {
		return errors.Wrap(err, "copy")
	}

	// checkpoint, durable before the source loses the key
	cp := checkpoint{Move: m.cfg.Move, Key: e.key}
	if m.cp != nil {
		cp.Keys, cp.Bytes = m.cp.Keys, m.cp.Bytes
	}
	cp.Keys++
	cp.Bytes += int64(len(e.key) + len(e.value))
	if err := saveCheckpoint(m.cfg.Meta, m.cfg.Source.Name, m.cfg.Dest.Name, cp); err != nil {
		return errors.Wrap(err, "checkpoint")
	}
	m.cp = &cp

	// a newer write on the source survives and is picked up again
	reply, err = m.cfg.Source.Link.Request(common.NewSyncDelRequest(e.key, version)...)
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	values, err := common.ParseOKReply(reply)
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	if len(values) == 1 && string(values[0]) == common.SyncStale {
		Logger.Debugf("key %q changed on %s while moving, copying it again", e.key, m.cfg.Source.Name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Finishing
// --------------------------------------------------------------------------

// Finish hands the moved interval over once the source holds no key of it:
// it pushes the new ranges to both nodes, then records both ranges and drops
// the checkpoint in one durable batch and releases the leases. Calling it
// again after it succeeded is a no-op.
func (m *Migrator) Finish(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		if m.leasesHeld {
			m.releaseLeases()
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, dst := m.cfg.Source, m.cfg.Dest
	reply, err := src.Link.Request(common.NewSyncScanRequest(m.cfg.Move.Min, m.cfg.Move.Max, 1)...)
	if err != nil {
		return errors.Wrap(err, "verify source")
	}
	left, err := common.ParseOKReply(reply)
	if err != nil {
		return errors.Wrap(err, "verify source")
	}
	if len(left) > 0 {
		return errors.Mark(errors.Newf("key %q is still on %s", left[0], src.Name), ErrNotDrained)
	}

	newSrc, newDst, err := m.targetRanges()
	if err != nil {
		return err
	}
	if err := pushRange(src, newSrc); err != nil {
		return err
	}
	if err := pushRange(dst, newDst); err != nil {
		return err
	}

	srcMut, err := putJSON(rangeKey(src.Name), newSrc)
	if err != nil {
		return err
	}
	dstMut, err := putJSON(rangeKey(dst.Name), newDst)
	if err != nil {
		return err
	}
	batch := []db.Mutation{srcMut, dstMut, db.Del(checkpointKey(src.Name, dst.Name))}
	if err := m.cfg.Meta.Apply(batch); err != nil {
		return errors.Wrap(err, "commit ranges")
	}

	m.srcRange, m.dstRange = newSrc, newDst
	m.cp = nil
	m.finished = true
	m.state = StateDone
	metricFinished.Inc()
	m.releaseLeases()
	Logger.Infof("moved %s: %s now owns %s, %s now owns %s", m.cfg.Move, src.Name, newSrc, dst.Name, newDst)
	return nil
}

func pushRange(n Node, r KeyRange) error {
	reply, err := n.Link.Request(common.NewSetKVRangeRequest(r.Min, r.Max)...)
	if err != nil {
		return errors.Wrapf(err, "set range of %s", n.Name)
	}
	if _, err := common.ParseOKReply(reply); err != nil {
		return errors.Wrapf(err, "set range of %s", n.Name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status returns a snapshot of the task's progress
func (m *Migrator) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:    m.state,
		Move:     m.cfg.Move,
		Source:   m.srcRange,
		Dest:     m.dstRange,
		Finished: m.finished,
	}
	if m.cp != nil {
		st.Checkpoint, st.HasCheckpoint = m.cp.Key, true
		st.KeysMoved, st.BytesMoved = m.cp.Keys, m.cp.Bytes
	}
	return st
}

// LoadStatus reads the recorded progress of the task moving src to dst
// without taking its leases
func LoadStatus(meta db.KVDB, src, dst Node, move KeyRange) (Status, error) {
	cp, err := loadCheckpoint(meta, src.Name, dst.Name)
	if err != nil {
		return Status{}, err
	}
	srcRange, err := loadRange(meta, src.Name, src.Range)
	if err != nil {
		return Status{}, err
	}
	dstRange, err := loadRange(meta, dst.Name, dst.Range)
	if err != nil {
		return Status{}, err
	}
	st := Status{State: StateInit, Move: move, Source: srcRange, Dest: dstRange}
	switch {
	case cp != nil:
		st.State = StateMoving
		st.Checkpoint, st.HasCheckpoint = cp.Key, true
		st.KeysMoved, st.BytesMoved = cp.Keys, cp.Bytes
	case !srcRange.Overlaps(move) && dstRange.Covers(move):
		st.State, st.Finished = StateDone, true
	}
	return st, nil
}
