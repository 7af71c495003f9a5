package migrate

import (
	"testing"
)

func TestKeyRange(t *testing.T) {
	full := KeyRange{}
	am := KeyRange{Min: "a", Max: "m"}
	mUp := KeyRange{Min: "m"}

	t.Run("Contains", func(t *testing.T) {
		tests := []struct {
			r        KeyRange
			key      string
			expected bool
		}{
			{full, "", true},
			{full, "zzz", true},
			{am, "a", true},
			{am, "lzz", true},
			{am, "m", false},
			{am, "", false},
			{mUp, "m", true},
			{mUp, "\xfe", true},
			{EmptyRange, "x", false},
		}
		for _, tt := range tests {
			if got := tt.r.Contains(tt.key); got != tt.expected {
				t.Errorf("%s.Contains(%q) = %t, want %t", tt.r, tt.key, got, tt.expected)
			}
		}
	})

	t.Run("ValidEmpty", func(t *testing.T) {
		if !am.Valid() || am.Empty() {
			t.Errorf("%s should be valid and non-empty", am)
		}
		if !full.Valid() || full.Empty() {
			t.Error("full range should be valid and non-empty")
		}
		inverted := KeyRange{Min: "z", Max: "a"}
		if inverted.Valid() {
			t.Errorf("%s should be invalid", inverted)
		}
		if !EmptyRange.Empty() || !EmptyRange.Valid() {
			t.Error("EmptyRange should be valid and empty")
		}
	})

	t.Run("Overlaps", func(t *testing.T) {
		tests := []struct {
			a, b     KeyRange
			expected bool
		}{
			{am, mUp, false},
			{am, KeyRange{Min: "l", Max: "n"}, true},
			{full, am, true},
			{mUp, KeyRange{Min: "z"}, true},
			{am, EmptyRange, false},
			{full, EmptyRange, false},
		}
		for _, tt := range tests {
			if got := tt.a.Overlaps(tt.b); got != tt.expected {
				t.Errorf("%s.Overlaps(%s) = %t, want %t", tt.a, tt.b, got, tt.expected)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.expected {
				t.Errorf("%s.Overlaps(%s) = %t, want %t", tt.b, tt.a, got, tt.expected)
			}
		}
	})

	t.Run("Covers", func(t *testing.T) {
		if !full.Covers(am) || !full.Covers(mUp) {
			t.Error("full range should cover everything")
		}
		if am.Covers(mUp) || am.Covers(full) {
			t.Error("bounded range must not cover an unbounded one")
		}
		if !am.Covers(KeyRange{Min: "b", Max: "c"}) || !am.Covers(EmptyRange) {
			t.Error("expected inner and empty ranges to be covered")
		}
	})

	t.Run("Subtract", func(t *testing.T) {
		tests := []struct {
			r, m     KeyRange
			expected KeyRange
			ok       bool
		}{
			{full, mUp, KeyRange{Min: "", Max: "m"}, true},
			{full, KeyRange{Max: "c"}, KeyRange{Min: "c"}, true},
			{am, KeyRange{Min: "a", Max: "c"}, KeyRange{Min: "c", Max: "m"}, true},
			{am, KeyRange{Min: "k", Max: "m"}, KeyRange{Min: "a", Max: "k"}, true},
			{am, KeyRange{Min: "c", Max: "d"}, KeyRange{}, false},
		}
		for _, tt := range tests {
			got, ok := subtract(tt.r, tt.m)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("subtract(%s, %s) = %s, %t; want %s, %t", tt.r, tt.m, got, ok, tt.expected, tt.ok)
			}
		}
	})

	t.Run("Union", func(t *testing.T) {
		tests := []struct {
			r, m     KeyRange
			expected KeyRange
			ok       bool
		}{
			{EmptyRange, mUp, mUp, true},
			{am, mUp, KeyRange{Min: "a"}, true},
			{mUp, am, KeyRange{Min: "a"}, true},
			{am, KeyRange{Min: "n", Max: "p"}, KeyRange{}, false},
		}
		for _, tt := range tests {
			got, ok := union(tt.r, tt.m)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("union(%s, %s) = %s, %t; want %s, %t", tt.r, tt.m, got, ok, tt.expected, tt.ok)
			}
		}
	})
}
