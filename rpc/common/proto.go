package common

import (
	"github.com/cockroachdb/errors"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// A message on the wire is an ordered list of byte strings. Requests carry
// the command name first, replies carry the status first:
//
//	request: ["set", key, value]
//	reply:   ["ok"] | ["ok", v1, v2, ...] | ["not_found"] | ["error", msg]

// Command is the lower-case name of a request
type Command string

const (
	// Key-value commands served to clients

	CmdPing   Command = "ping"
	CmdGet    Command = "get"
	CmdSet    Command = "set"
	CmdDelete Command = "del"
	CmdExists Command = "exists"
	CmdScan   Command = "scan"
	CmdInfo   Command = "info"

	// Cluster commands used by the migrator

	CmdKVRange    Command = "kv_range"
	CmdSetKVRange Command = "set_kv_range"
	CmdSyncScan   Command = "sync_scan"
	CmdSyncSet    Command = "sync_set"
	CmdSyncDel    Command = "sync_del"
)

// IntegerCommands reply with a single integer value. The foreign protocol
// encodes their replies as integers instead of bulk strings.
var IntegerCommands = map[Command]bool{
	CmdExists: true,
}

// Status is the first value of every reply
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusError       Status = "error"
	StatusFail        Status = "fail"
	StatusClientError Status = "client_error"
)

// Values returned by sync_set and sync_del
const (
	SyncApplied = "applied"
	SyncStale   = "stale"
)

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

func request(cmd Command, args ...[]byte) [][]byte {
	msg := make([][]byte, 0, len(args)+1)
	msg = append(msg, []byte(cmd))
	return append(msg, args...)
}

// NewPingRequest creates a new Ping request
func NewPingRequest() [][]byte {
	return request(CmdPing)
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) [][]byte {
	return request(CmdGet, []byte(key))
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) [][]byte {
	return request(CmdSet, []byte(key), value)
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) [][]byte {
	return request(CmdDelete, []byte(key))
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest(key string) [][]byte {
	return request(CmdExists, []byte(key))
}

// NewScanRequest creates a new Scan request over [start, end)
func NewScanRequest(start, end string, limit int) [][]byte {
	return request(CmdScan, []byte(start), []byte(end), []byte(strconv.Itoa(limit)))
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() [][]byte {
	return request(CmdInfo)
}

// NewKVRangeRequest creates a new KVRange request
func NewKVRangeRequest() [][]byte {
	return request(CmdKVRange)
}

// NewSetKVRangeRequest creates a new SetKVRange request
func NewSetKVRangeRequest(min, max string) [][]byte {
	return request(CmdSetKVRange, []byte(min), []byte(max))
}

// NewSyncScanRequest creates a new SyncScan request over [start, end)
func NewSyncScanRequest(start, end string, limit int) [][]byte {
	return request(CmdSyncScan, []byte(start), []byte(end), []byte(strconv.Itoa(limit)))
}

// NewSyncSetRequest creates a new SyncSet request
func NewSyncSetRequest(key string, value []byte, version uint64) [][]byte {
	return request(CmdSyncSet, []byte(key), value, []byte(strconv.FormatUint(version, 10)))
}

// NewSyncDelRequest creates a new SyncDel request, the key is only deleted if
// its version is not above the given one
func NewSyncDelRequest(key string, version uint64) [][]byte {
	return request(CmdSyncDel, []byte(key), []byte(strconv.FormatUint(version, 10)))
}

// --------------------------------------------------------------------------
// Response Factory Functions
// --------------------------------------------------------------------------

// NewOKResponse creates a successful reply carrying the given values
func NewOKResponse(values ...[]byte) [][]byte {
	msg := make([][]byte, 0, len(values)+1)
	msg = append(msg, []byte(StatusOK))
	return append(msg, values...)
}

// NewNotFoundResponse creates a not_found reply
func NewNotFoundResponse() [][]byte {
	return [][]byte{[]byte(StatusNotFound)}
}

// NewErrorResponse creates an error reply from a server side failure
func NewErrorResponse(err error) [][]byte {
	return [][]byte{[]byte(StatusError), []byte(err.Error())}
}

// NewClientErrorResponse creates a client_error reply for a malformed request
func NewClientErrorResponse(msg string) [][]byte {
	return [][]byte{[]byte(StatusClientError), []byte(msg)}
}

// --------------------------------------------------------------------------
// Reply parsing
// --------------------------------------------------------------------------

// ErrReply marks every error produced from a non-ok reply
var ErrReply = errors.New("remote error reply")

// Reply is a parsed reply
type Reply struct {
	Status Status
	Values [][]byte
}

// ParseReply splits a raw reply into status and values
func ParseReply(msg [][]byte) (Reply, error) {
	if len(msg) == 0 {
		return Reply{}, errors.Mark(errors.New("empty reply"), ErrReply)
	}
	return Reply{Status: Status(msg[0]), Values: msg[1:]}, nil
}

// OK reports whether the reply status is ok
func (r Reply) OK() bool { return r.Status == StatusOK }

// Err converts a reply into an error. ok and not_found are not errors.
func (r Reply) Err() error {
	switch r.Status {
	case StatusOK, StatusNotFound:
		return nil
	}
	parts := make([]string, 0, len(r.Values))
	for _, v := range r.Values {
		parts = append(parts, string(v))
	}
	return errors.Mark(errors.Newf("%s: %s", r.Status, strings.Join(parts, " ")), ErrReply)
}

// ParseOKReply parses msg and fails unless the status is ok
func ParseOKReply(msg [][]byte) ([][]byte, error) {
	r, err := ParseReply(msg)
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if !r.OK() {
		return nil, errors.Mark(errors.Newf("unexpected status %q", r.Status), ErrReply)
	}
	return r.Values, nil
}
