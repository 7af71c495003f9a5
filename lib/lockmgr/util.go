package lockmgr

import (
	"crypto/sha256"
	"encoding/json"
	"github.com/cockroachdb/errors"
	"strings"
	"time"
)

// lease is the value stored under a lock key
type lease struct {
	Owner   []byte `json:"owner"`
	Expires int64  `json:"expires,omitempty"` // unix nanos, 0 = never
}

func (l lease) expired(now time.Time) bool {
	return l.Expires != 0 && now.UnixNano() >= l.Expires
}

func decodeLease(raw []byte) (lease, error) {
	var l lease
	if err := json.Unmarshal(raw, &l); err != nil {
		return lease{}, errors.Wrap(err, "decode lease")
	}
	return l, nil
}

// OwnerID derives a stable owner id from the given parts. A task that restarts
// with the same parts owns the same locks again.
func OwnerID(parts ...string) []byte {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return sum[:]
}
