package buffer

import (
	"bytes"
	"github.com/cockroachdb/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"testing"
)

// write copies p into the writable region and commits it
func write(t *testing.T, b *Buffer, p []byte) {
	t.Helper()
	n := copy(b.Writable(), p)
	if n != len(p) {
		t.Fatalf("writable region too small: %d < %d", n, len(p))
	}
	if err := b.AdvanceWrite(n); err != nil {
		t.Fatalf("AdvanceWrite(%d) failed: %v", n, err)
	}
}

func TestNew(t *testing.T) {
	b := New(Options{})

	if b.Cap() != DefaultInitial {
		t.Errorf("expected initial capacity %d, got %d", DefaultInitial, b.Cap())
	}
	if !b.Empty() || b.Len() != 0 {
		t.Errorf("new buffer should be empty, len=%d", b.Len())
	}
	if b.Free() != DefaultInitial {
		t.Errorf("expected free space %d, got %d", DefaultInitial, b.Free())
	}
	if b.Grown() {
		t.Error("new buffer should not report as grown")
	}
}

func TestCursors(t *testing.T) {
	t.Run("AdvanceWriteAndRead", func(t *testing.T) {
		b := New(Options{Initial: 16})
		write(t, b, []byte("hello"))

		if b.Len() != 5 || b.Free() != 11 {
			t.Fatalf("unexpected sizes len=%d free=%d", b.Len(), b.Free())
		}
		if err := b.AdvanceRead(2); err != nil {
			t.Fatalf("AdvanceRead failed: %v", err)
		}
		if got := string(b.Readable()); got != "llo" {
			t.Errorf("expected readable %q, got %q", "llo", got)
		}
		// free space does not include the consumed prefix until compaction
		if b.Free() != 11 {
			t.Errorf("expected free space 11 before compaction, got %d", b.Free())
		}
	})

	t.Run("DrainResetsCursors", func(t *testing.T) {
		b := New(Options{Initial: 16})
		write(t, b, []byte("abc"))
		if err := b.AdvanceRead(3); err != nil {
			t.Fatalf("AdvanceRead failed: %v", err)
		}
		if !b.Empty() || b.Free() != 16 {
			t.Errorf("drained buffer should have full free space, got %d", b.Free())
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		b := New(Options{Initial: 8})

		if err := b.AdvanceWrite(9); !errors.Is(err, ErrRange) {
			t.Errorf("expected ErrRange for write past capacity, got %v", err)
		}
		if err := b.AdvanceWrite(-1); !errors.Is(err, ErrRange) {
			t.Errorf("expected ErrRange for negative write, got %v", err)
		}
		write(t, b, []byte("ab"))
		if err := b.AdvanceRead(3); !errors.Is(err, ErrRange) {
			t.Errorf("expected ErrRange for read past end, got %v", err)
		}
		if err := b.AdvanceRead(-1); !errors.Is(err, ErrRange) {
			t.Errorf("expected ErrRange for negative read, got %v", err)
		}
		if b.Len() != 2 {
			t.Errorf("failed advances must not move cursors, len=%d", b.Len())
		}
	})
}

func TestCompact(t *testing.T) {
	b := New(Options{Initial: 8})
	write(t, b, []byte("abcdef"))
	_ = b.AdvanceRead(4)

	capBefore := b.Cap()
	b.Compact()

	if b.Cap() != capBefore {
		t.Errorf("compaction must not reallocate: %d != %d", b.Cap(), capBefore)
	}
	if got := string(b.Readable()); got != "ef" {
		t.Errorf("expected %q after compaction, got %q", "ef", got)
	}
	if b.Free() != 6 {
		t.Errorf("expected free space 6 after compaction, got %d", b.Free())
	}
}

func TestGrow(t *testing.T) {
	t.Run("FirstGrowJumpsToMin", func(t *testing.T) {
		b := New(Options{Initial: 8, Min: 64, Max: 256})
		write(t, b, []byte("abc"))
		if err := b.Grow(); err != nil {
			t.Fatalf("Grow failed: %v", err)
		}
		if b.Cap() != 64 {
			t.Errorf("expected capacity 64, got %d", b.Cap())
		}
		if got := string(b.Readable()); got != "abc" {
			t.Errorf("grow must keep content, got %q", got)
		}
		if !b.Grown() {
			t.Error("expected buffer to report as grown")
		}
	})

	t.Run("DoublesUntilCeiling", func(t *testing.T) {
		b := New(Options{Initial: 8, Min: 64, Max: 200})
		expected := []int{64, 128, 200}
		for _, want := range expected {
			if err := b.Grow(); err != nil {
				t.Fatalf("Grow failed: %v", err)
			}
			if b.Cap() != want {
				t.Errorf("expected capacity %d, got %d", want, b.Cap())
			}
		}
		if err := b.Grow(); !errors.Is(err, ErrCapacity) {
			t.Errorf("expected ErrCapacity at ceiling, got %v", err)
		}
	})
}

func TestAppend(t *testing.T) {
	t.Run("Record", func(t *testing.T) {
		b := New(Options{})
		if err := b.AppendRecord([]byte("foo")); err != nil {
			t.Fatalf("AppendRecord failed: %v", err)
		}
		if err := b.AppendRecord(nil); err != nil {
			t.Fatalf("AppendRecord failed: %v", err)
		}
		if err := b.AppendByte('\n'); err != nil {
			t.Fatalf("AppendByte failed: %v", err)
		}
		if got := string(b.Readable()); got != "3\nfoo\n0\n\n\n" {
			t.Errorf("unexpected encoding %q", got)
		}
	})

	t.Run("GrowsOnDemand", func(t *testing.T) {
		b := New(Options{Initial: 4, Min: 16, Max: 1024})
		payload := bytes.Repeat([]byte("x"), 100)
		if err := b.Append(payload); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if !bytes.Equal(b.Readable(), payload) {
			t.Error("appended content mismatch")
		}
		if b.Cap() != 128 {
			t.Errorf("expected capacity 128, got %d", b.Cap())
		}
	})

	t.Run("FailsPastCeiling", func(t *testing.T) {
		b := New(Options{Initial: 4, Min: 8, Max: 16})
		err := b.Append(bytes.Repeat([]byte("x"), 17))
		if !errors.Is(err, ErrCapacity) {
			t.Errorf("expected ErrCapacity, got %v", err)
		}
	})
}

func TestReset(t *testing.T) {
	b := New(Options{})
	_ = b.AppendString("payload")
	capBefore := b.Cap()
	b.Reset()
	if !b.Empty() || b.Cap() != capBefore {
		t.Errorf("reset should drop content and keep memory: len=%d cap=%d", b.Len(), b.Cap())
	}
}

// TestCompactPreservesContent checks that for any sequence of cursor
// movements compaction keeps the unread size and bytes unchanged
func TestCompactPreservesContent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("compact preserves unread bytes", prop.ForAll(
		func(ops []int) bool {
			b := New(Options{Initial: 64})
			var model []byte
			next := byte(0)

			for _, op := range ops {
				if op >= 0 {
					n := op
					if n > b.Free() {
						n = b.Free()
					}
					w := b.Writable()
					for i := 0; i < n; i++ {
						w[i] = next
						model = append(model, next)
						next++
					}
					if b.AdvanceWrite(n) != nil {
						return false
					}
				} else {
					n := -op
					if n > b.Len() {
						n = b.Len()
					}
					if b.AdvanceRead(n) != nil {
						return false
					}
					model = model[n:]
				}
			}

			before := b.Len()
			b.Compact()
			return b.Len() == before && bytes.Equal(b.Readable(), model)
		},
		gen.SliceOf(gen.IntRange(-32, 32)),
	))

	properties.TestingRun(t)
}
