package db

import (
	"github.com/cockroachdb/errors"
	"strings"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemDB  Implementation = "memdb"
	ImplPebble Implementation = "pebble"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet     Feature = 1 << iota // Support for Set operations
	FeatureGet                         // Support for Get operations
	FeatureDelete                      // Support for Delete operations
	FeatureHas                         // Support for Has operations
	FeatureScan                        // Support for ordered Scan operations
	FeatureBatch                       // Support for atomic Apply operations
	FeatureDurable                     // Writes survive a process crash once they returned
)

// AllFeatures lists every feature flag in declaration order
var AllFeatures = []Feature{FeatureSet, FeatureGet, FeatureDelete, FeatureHas, FeatureScan, FeatureBatch, FeatureDurable}

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureScan:
		return "Scan"
	case FeatureBatch:
		return "Batch"
	case FeatureDurable:
		return "Durable"
	default:
		return "Unknown"
	}
}

// FeaturesOf returns the single features contained in the bit set f
func FeaturesOf(f Feature) []Feature {
	var out []Feature
	for _, feature := range AllFeatures {
		if f&feature != 0 {
			out = append(out, feature)
		}
	}
	return out
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Keys              int            `json:"keys"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// FeatureNames returns the supported features as a comma separated list
func (i DatabaseInfo) FeatureNames() string {
	names := make([]string, 0, len(i.SupportedFeatures))
	for _, f := range i.SupportedFeatures {
		names = append(names, f.String())
	}
	return strings.Join(names, ",")
}

// ErrClosed is returned by every operation on a closed database
var ErrClosed = errors.New("db: database is closed")

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

// Mutation is a single write inside an atomic batch
type Mutation struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put returns a mutation that sets key to value
func Put(key string, value []byte) Mutation {
	return Mutation{Key: key, Value: value}
}

// Del returns a mutation that removes key
func Del(key string) Mutation {
	return Mutation{Key: key, Delete: true}
}

// ScanFunc is called for every entry of a scan in key order. Returning false
// stops the scan. key and value must not be retained after the call.
type ScanFunc func(key string, value []byte) bool

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for ordered key-value database implementations.
// Keys are compared byte-wise. Implementations can vary in their feature
// support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry. The value is copied.
	Set(key string, value []byte) (err error)

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(key string) (err error)

	// Apply writes all mutations atomically: either all of them are visible
	// afterwards or none. On durable implementations the batch is synced to
	// stable storage before Apply returns.
	Apply(batch []Mutation) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves a copy of the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool, err error)

	// Scan calls fn for every entry with start <= key < end in ascending key
	// order. An empty end means unbounded above. limit <= 0 means no limit.
	Scan(start, end string, limit int, fn ScanFunc) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
