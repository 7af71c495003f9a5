package buffer

import (
	"github.com/cockroachdb/errors"
	"strconv"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrRange is returned when a cursor adjustment would break 0 <= start <= end <= cap.
	ErrRange = errors.New("buffer: cursor out of range")
	// ErrCapacity is returned when the buffer would have to grow past its ceiling.
	ErrCapacity = errors.New("buffer: capacity ceiling reached")
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

const (
	DefaultInitial = 8                 // near-empty start, the first Grow jumps to Min
	DefaultMin     = 8 * 1024          // capacity after the first Grow
	DefaultMax     = 128 * 1024 * 1024 // hard ceiling
)

// Options configures the sizes of a Buffer. Zero fields fall back to the defaults.
type Options struct {
	Initial int // capacity at creation
	Min     int // capacity the first Grow raises to
	Max     int // hard ceiling, Grow fails beyond it
}

func (o Options) withDefaults() Options {
	if o.Initial <= 0 {
		o.Initial = DefaultInitial
	}
	if o.Min <= 0 {
		o.Min = DefaultMin
	}
	if o.Max <= 0 {
		o.Max = DefaultMax
	}
	if o.Min > o.Max {
		o.Min = o.Max
	}
	if o.Initial > o.Max {
		o.Initial = o.Max
	}
	return o
}

// --------------------------------------------------------------------------
// Buffer
// --------------------------------------------------------------------------

// Buffer is a growable linear byte store with a read cursor (start) and a
// write cursor (end). Unread content is data[start:end].
//
// Thread-safety: A Buffer is owned by exactly one link and is not safe for
// concurrent use.
type Buffer struct {
	data  []byte
	start int
	end   int
	opts  Options
}

// New creates a near-empty buffer with the given options
func New(opts Options) *Buffer {
	opts = opts.withDefaults()
	return &Buffer{
		data: make([]byte, opts.Initial),
		opts: opts,
	}
}

// Cap returns the total capacity of the buffer.
func (b *Buffer) Cap() int { return len(b.data) }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return b.end - b.start }

// Free returns the room left behind the write cursor. It does not include
// the slack in front of the read cursor, call Compact first to reclaim it.
func (b *Buffer) Free() int { return len(b.data) - b.end }

// Empty reports whether there are no unread bytes.
func (b *Buffer) Empty() bool { return b.end == b.start }

// Grown reports whether the buffer has left its initial near-empty size.
func (b *Buffer) Grown() bool { return len(b.data) > b.opts.Initial }

// Readable returns the unread bytes. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Readable() []byte { return b.data[b.start:b.end] }

// Writable returns the free region behind the write cursor. Bytes written
// into it become visible after AdvanceWrite.
func (b *Buffer) Writable() []byte { return b.data[b.end:] }

// AdvanceWrite moves the write cursor forward after n bytes were written into Writable().
func (b *Buffer) AdvanceWrite(n int) error {
	if n < 0 || b.end+n > len(b.data) {
		return errors.Wrapf(ErrRange, "advance write by %d (end=%d cap=%d)", n, b.end, len(b.data))
	}
	b.end += n
	return nil
}

// AdvanceRead moves the read cursor forward after n bytes were consumed from Readable().
// When the buffer becomes empty both cursors are reset to 0.
func (b *Buffer) AdvanceRead(n int) error {
	if n < 0 || b.start+n > b.end {
		return errors.Wrapf(ErrRange, "advance read by %d (start=%d end=%d)", n, b.start, b.end)
	}
	b.start += n
	if b.start == b.end {
		b.start, b.end = 0, 0
	}
	return nil
}

// Compact shifts the unread bytes down to offset 0 so that the prefix slack
// becomes free space. No reallocation happens.
func (b *Buffer) Compact() {
	if b.start == 0 {
		return
	}
	n := copy(b.data, b.data[b.start:b.end])
	b.start, b.end = 0, n
}

// Grow raises the capacity to the configured minimum on first use and
// doubles it afterwards, clamped to the ceiling. Unread content is kept
// (and compacted). Growing a buffer that is already at its ceiling fails
// with ErrCapacity.
func (b *Buffer) Grow() error {
	size := len(b.data)
	if size >= b.opts.Max {
		return errors.Wrapf(ErrCapacity, "grow beyond %d bytes", b.opts.Max)
	}

	var next int
	if size < b.opts.Min {
		next = b.opts.Min
	} else {
		next = size * 2
	}
	if next > b.opts.Max {
		next = b.opts.Max
	}

	data := make([]byte, next)
	n := copy(data, b.data[b.start:b.end])
	b.data, b.start, b.end = data, 0, n
	return nil
}

// Reset drops all content without releasing memory.
func (b *Buffer) Reset() {
	b.start, b.end = 0, 0
}

// reserve makes sure at least n bytes can be written behind the write cursor.
func (b *Buffer) reserve(n int) error {
	if b.Free() >= n {
		return nil
	}
	b.Compact()
	for b.Free() < n {
		if err := b.Grow(); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Append operations
// --------------------------------------------------------------------------

// AppendByte appends a single raw byte.
func (b *Buffer) AppendByte(c byte) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.data[b.end] = c
	b.end++
	return nil
}

// Append appends raw bytes.
func (b *Buffer) Append(p []byte) error {
	if err := b.reserve(len(p)); err != nil {
		return err
	}
	b.end += copy(b.data[b.end:], p)
	return nil
}

// AppendString appends the bytes of s.
func (b *Buffer) AppendString(s string) error {
	if err := b.reserve(len(s)); err != nil {
		return err
	}
	b.end += copy(b.data[b.end:], s)
	return nil
}

// AppendRecord appends a length-prefixed record:
//
//	<decimal length>\n<payload>\n
func (b *Buffer) AppendRecord(p []byte) error {
	var head [20]byte
	h := strconv.AppendInt(head[:0], int64(len(p)), 10)
	if err := b.reserve(len(h) + len(p) + 2); err != nil {
		return err
	}
	b.end += copy(b.data[b.end:], h)
	b.data[b.end] = '\n'
	b.end++
	b.end += copy(b.data[b.end:], p)
	b.data[b.end] = '\n'
	b.end++
	return nil
}
