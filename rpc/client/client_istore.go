package client

import (
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"strconv"
	"strings"
)

// NewRPCStore creates a store.IStore that forwards every call to the node at
// config.Endpoint. The connection is opened eagerly so a wrong endpoint
// fails here, and reopened on demand after failures.
func NewRPCStore(config common.ClientConfig) (*RPCStore, error) {
	s := &RPCStore{rpcClientAdapter{config: config}}
	s.mu.Lock()
	err := s.connect()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RPCStore is the client side of one node.
//
// Thread-safety: All methods are safe for concurrent use; calls are
// serialized on one link.
type RPCStore struct {
	rpcClientAdapter
}

var _ store.IStore = (*RPCStore)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *RPCStore) Set(key string, value []byte) error {
	_, err := s.invokeRPCRequest(common.NewSetRequest(key, value))
	return err
}

func (s *RPCStore) SetIfNewer(key string, value []byte, version uint64) (bool, error) {
	reply, err := s.invokeRPCRequest(common.NewSyncSetRequest(key, value, version))
	if err != nil {
		return false, err
	}
	if len(reply.Values) != 1 {
		return false, malformed(common.CmdSyncSet, reply)
	}
	return string(reply.Values[0]) == common.SyncApplied, nil
}

func (s *RPCStore) Delete(key string) error {
	_, err := s.invokeRPCRequest(common.NewDeleteRequest(key))
	return err
}

func (s *RPCStore) DeleteIfNotNewer(key string, version uint64) (bool, error) {
	reply, err := s.invokeRPCRequest(common.NewSyncDelRequest(key, version))
	if err != nil {
		return false, err
	}
	if len(reply.Values) != 1 {
		return false, malformed(common.CmdSyncDel, reply)
	}
	return string(reply.Values[0]) == common.SyncApplied, nil
}

func (s *RPCStore) Get(key string) ([]byte, bool, error) {
	reply, err := s.invokeRPCRequest(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	if reply.Status == common.StatusNotFound {
		return nil, false, nil
	}
	if len(reply.Values) != 1 {
		return nil, false, malformed(common.CmdGet, reply)
	}
	return reply.Values[0], true, nil
}

func (s *RPCStore) Has(key string) (bool, error) {
	reply, err := s.invokeRPCRequest(common.NewExistsRequest(key))
	if err != nil {
		return false, err
	}
	if len(reply.Values) != 1 {
		return false, malformed(common.CmdExists, reply)
	}
	return string(reply.Values[0]) == "1", nil
}

func (s *RPCStore) Scan(start, end string, limit int) ([]store.Entry, error) {
	reply, err := s.invokeRPCRequest(common.NewSyncScanRequest(start, end, limit))
	if err != nil {
		return nil, err
	}
	if len(reply.Values)%3 != 0 {
		return nil, malformed(common.CmdSyncScan, reply)
	}
	entries := make([]store.Entry, 0, len(reply.Values)/3)
	for i := 0; i < len(reply.Values); i += 3 {
		version, err := strconv.ParseUint(string(reply.Values[i+2]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "version of %q", reply.Values[i])
		}
		entries = append(entries, store.Entry{
			Key:     string(reply.Values[i]),
			Value:   reply.Values[i+1],
			Version: version,
		})
	}
	return entries, nil
}

func (s *RPCStore) KVRange() (string, string, error) {
	reply, err := s.invokeRPCRequest(common.NewKVRangeRequest())
	if err != nil {
		return "", "", err
	}
	if len(reply.Values) != 2 {
		return "", "", malformed(common.CmdKVRange, reply)
	}
	return string(reply.Values[0]), string(reply.Values[1]), nil
}

func (s *RPCStore) SetKVRange(min, max string) error {
	_, err := s.invokeRPCRequest(common.NewSetKVRangeRequest(min, max))
	return err
}

// GetDBInfo asks the node for its info pairs. Pairs the DatabaseInfo has no
// field for end up in Metadata as map[string]string.
func (s *RPCStore) GetDBInfo() (db.DatabaseInfo, error) {
	pairs, err := s.Info()
	if err != nil {
		return db.DatabaseInfo{}, err
	}

	info := db.DatabaseInfo{DbType: db.Implementation(pairs["db_type"])}
	info.Keys, _ = strconv.Atoi(pairs["keys"])
	info.SizeBytes, _ = strconv.Atoi(pairs["size_bytes"])
	for _, name := range strings.Split(pairs["features"], ",") {
		for _, f := range db.AllFeatures {
			if f.String() == name {
				info.SupportedFeatures = append(info.SupportedFeatures, f)
			}
		}
	}

	meta := make(map[string]string)
	for k, v := range pairs {
		switch k {
		case "db_type", "keys", "size_bytes", "features":
		default:
			meta[k] = v
		}
	}
	info.Metadata = meta
	return info, nil
}

// Close closes the link. The remote store stays open.
func (s *RPCStore) Close() error {
	return s.close()
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Ping checks that the node answers
func (s *RPCStore) Ping() error {
	_, err := s.invokeRPCRequest(common.NewPingRequest())
	return err
}

// Info returns the name/value pairs of the info command
func (s *RPCStore) Info() (map[string]string, error) {
	reply, err := s.invokeRPCRequest(common.NewInfoRequest())
	if err != nil {
		return nil, err
	}
	if len(reply.Values)%2 != 0 {
		return nil, malformed(common.CmdInfo, reply)
	}
	pairs := make(map[string]string, len(reply.Values)/2)
	for i := 0; i < len(reply.Values); i += 2 {
		pairs[string(reply.Values[i])] = string(reply.Values[i+1])
	}
	return pairs, nil
}

// Request performs one raw exchange, so an RPCStore can serve as the
// migrator's link to a node
func (s *RPCStore) Request(values ...[]byte) ([][]byte, error) {
	reply, err := s.invokeRPCRequest(values)
	if err != nil && !errors.Is(err, common.ErrReply) {
		return nil, err
	}
	return append([][]byte{[]byte(reply.Status)}, reply.Values...), nil
}

func malformed(cmd common.Command, reply common.Reply) error {
	return errors.Mark(errors.Newf("malformed %s reply with status %s and %d values", cmd, reply.Status, len(reply.Values)), common.ErrReply)
}
