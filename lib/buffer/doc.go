// Package buffer provides the growable byte store used for both halves of a
// network link.
//
// A Buffer is a single owned byte block with two cursors: the read cursor
// (start) and the write cursor (end). Unread content lives in [start, end).
// Network code writes directly into Writable() and commits the bytes with
// AdvanceWrite, and consumes from Readable() followed by AdvanceRead.
//
// Memory policy:
//
//   - A buffer is created near-empty (8 bytes by default) so idle connections
//     cost almost nothing.
//   - Grow() raises the capacity to Options.Min on first use and doubles it
//     afterwards, up to the hard ceiling Options.Max. Past the ceiling it
//     fails with ErrCapacity.
//   - Compact() moves unread bytes to offset 0, reclaiming the prefix slack
//     without reallocating. Free() only counts the room behind the write
//     cursor, so callers must Compact before trusting it. Grow() is the only
//     way past a compacted but full buffer.
//
// Cursor violations are reported with ErrRange.
package buffer
