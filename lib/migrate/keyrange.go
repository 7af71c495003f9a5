package migrate

import (
	"fmt"
	"github.com/ValentinKolb/rKV/lib/store"
)

// KeyRange is the half-open interval [Min, Max) of byte-string keys.
// An empty Max means unbounded above.
type KeyRange struct {
	Min string `json:"min" toml:"min"`
	Max string `json:"max" toml:"max"`
}

// EmptyRange owns no client key. It is the range of a node that has not been
// assigned any keys yet.
var EmptyRange = KeyRange{Min: store.MetaPrefix, Max: store.MetaPrefix}

// Unbounded reports whether the range has no upper bound
func (r KeyRange) Unbounded() bool {
	return r.Max == ""
}

// Valid reports whether Min <= Max (always true when unbounded)
func (r KeyRange) Valid() bool {
	return r.Unbounded() || r.Min <= r.Max
}

// Empty reports whether no key lies in the range
func (r KeyRange) Empty() bool {
	return !r.Unbounded() && r.Min >= r.Max
}

// Contains reports whether key lies in the range
func (r KeyRange) Contains(key string) bool {
	return key >= r.Min && (r.Unbounded() || key < r.Max)
}

// Covers reports whether every key of o lies in r
func (r KeyRange) Covers(o KeyRange) bool {
	if o.Empty() {
		return true
	}
	if o.Min < r.Min {
		return false
	}
	if r.Unbounded() {
		return true
	}
	return !o.Unbounded() && o.Max <= r.Max
}

// Overlaps reports whether some key lies in both ranges
func (r KeyRange) Overlaps(o KeyRange) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	lowerOK := r.Unbounded() || o.Min < r.Max
	upperOK := o.Unbounded() || r.Min < o.Max
	return lowerOK && upperOK
}

func (r KeyRange) String() string {
	if r.Unbounded() {
		return fmt.Sprintf("[%q, +inf)", r.Min)
	}
	return fmt.Sprintf("[%q, %q)", r.Min, r.Max)
}

// subtract returns r without the interval m. m must share the lower or the
// upper edge of r so the result stays contiguous.
func subtract(r, m KeyRange) (KeyRange, bool) {
	switch {
	case m.Min == r.Min && !m.Unbounded():
		return KeyRange{Min: m.Max, Max: r.Max}, true
	case m.Max == r.Max:
		return KeyRange{Min: r.Min, Max: m.Min}, true
	default:
		return KeyRange{}, false
	}
}

// union returns r extended by the adjacent interval m
func union(r, m KeyRange) (KeyRange, bool) {
	switch {
	case r.Empty():
		return m, true
	case !r.Unbounded() && r.Max == m.Min:
		return KeyRange{Min: r.Min, Max: m.Max}, true
	case !m.Unbounded() && m.Max == r.Min:
		return KeyRange{Min: m.Min, Max: r.Max}, true
	default:
		return KeyRange{}, false
	}
}
