package store

import (
	"fmt"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/cockroachdb/errors"
	"strings"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.KVDB, error)

// MetaPrefix starts every reserved internal key. Clients cannot write such
// keys and scans never return them.
const MetaPrefix = "\xff"

// IsMetaKey reports whether key lies in the reserved internal key space
func IsMetaKey(key string) bool {
	return strings.HasPrefix(key, MetaPrefix)
}

// Entry is one key with its value and write version
type Entry struct {
	Key     string
	Value   []byte
	Version uint64
}

// IStore is the generic interface for interacting with the key–value store
// of one node. Every value carries a version; versions of a key only grow.
type IStore interface {
	// Set inserts or updates a key–value pair with a fresh version.
	Set(key string, value []byte) (err error)
	// SetIfNewer writes the pair with the given version only if the key is
	// absent or its stored version is lower. Re-applying the same version is
	// a no-op that reports applied=false.
	SetIfNewer(key string, value []byte, version uint64) (applied bool, err error)
	// Delete deletes a key–value pair. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// DeleteIfNotNewer deletes the key only if its stored version is not
	// above the given one. A missing key reports deleted=true.
	DeleteIfNotNewer(key string, version uint64) (deleted bool, err error)
	// Get return the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// Scan returns up to limit entries with start <= key < end in key order.
	// An empty end means unbounded above, limit <= 0 means no limit.
	// Reserved internal keys are never returned.
	Scan(start, end string, limit int) (entries []Entry, err error)
	// KVRange returns the key range [min, max) this node owns. An empty max is unbounded.
	KVRange() (min, max string, err error)
	// SetKVRange replaces the owned key range.
	SetKVRange(min, max string) (err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close closes the underlying database.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf returns the return code of a store error anywhere in err's chain,
// RetCInternalError for any other error and RetCSuccess for nil.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation (e.g. write to a reserved key).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
