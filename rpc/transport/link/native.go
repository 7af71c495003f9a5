package link

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/buffer"
)

// maxHeaderLen bounds a length header line including its terminator
const maxHeaderLen = 20

// maxLength caps parsed lengths well below integer overflow
const maxLength = 1 << 40

// --------------------------------------------------------------------------
// Framing (tagged variant: native or foreign)
// --------------------------------------------------------------------------

// framing encodes outgoing messages in the format that is active for a link.
// A link starts with native framing and switches to *foreignFraming for the
// rest of its life once a foreign request was received.
type framing interface {
	// decode parses one unit from in. It returns (nil, nil) when the input
	// holds only a partial unit and consumes nothing in that case.
	decode(in *buffer.Buffer, limit int) ([][]byte, error)

	// encode appends one message to out, terminator included
	encode(out *buffer.Buffer, values [][]byte) error
}

// nativeFraming implements the length-prefixed line format:
//
//	<len>\n<payload>\n ... \n
type nativeFraming struct{}

func (nativeFraming) decode(in *buffer.Buffer, limit int) ([][]byte, error) {
	return decodeNative(in, limit)
}

func (nativeFraming) encode(out *buffer.Buffer, values [][]byte) error {
	for _, v := range values {
		if err := out.AppendRecord(v); err != nil {
			return err
		}
	}
	return out.AppendByte('\n')
}

// decodeNative parses one native unit from the unread part of in
func decodeNative(in *buffer.Buffer, limit int) ([][]byte, error) {
	data := in.Readable()
	pos := 0

	// ignore leading empty lines
	for pos < len(data) && (data[pos] == '\n' || data[pos] == '\r') {
		pos++
	}

	var values [][]byte
	for pos < len(data) {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			if len(data)-pos >= maxHeaderLen {
				return nil, protocolError("length header exceeds %d bytes", maxHeaderLen)
			}
			return nil, nil
		}

		line := data[pos : pos+nl]
		if len(line) == 0 || (len(line) == 1 && line[0] == '\r') {
			// end of unit
			if err := in.AdvanceRead(pos + nl + 1); err != nil {
				return nil, err
			}
			return values, nil
		}
		if nl+1 > maxHeaderLen {
			return nil, protocolError("length header exceeds %d bytes", maxHeaderLen)
		}

		size, ok := parseLength(line)
		if !ok {
			return nil, protocolError("malformed length header %q", line)
		}

		body := pos + nl + 1
		if body+size > limit {
			return nil, protocolError("unit exceeds max packet size of %d bytes", limit)
		}
		if body+size > len(data) {
			return nil, nil
		}

		next, complete, err := skipTerminator(data, body+size)
		if err != nil {
			return nil, err
		}
		if !complete {
			return nil, nil
		}

		values = append(values, bytes.Clone(data[body:body+size]))
		pos = next
	}
	return nil, nil
}

// parseLength parses a decimal length, an optional trailing '\r' is allowed
func parseLength(line []byte) (int, bool) {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if len(line) == 0 {
		return 0, false
	}
	size := 0
	for _, c := range line {
		if c < '0' || c > '9' {
			return 0, false
		}
		size = size*10 + int(c-'0')
		if size > maxLength {
			return 0, false
		}
	}
	return size, true
}

// skipTerminator checks for "\n" or "\r\n" at data[p:]. complete is false
// if more bytes are needed to decide.
func skipTerminator(data []byte, p int) (next int, complete bool, err error) {
	switch {
	case p == len(data):
		return p, false, nil
	case data[p] == '\n':
		return p + 1, true, nil
	case data[p] == '\r' && p+1 == len(data):
		return p, false, nil
	case data[p] == '\r' && data[p+1] == '\n':
		return p + 2, true, nil
	default:
		return p, false, protocolError("payload not followed by a line terminator")
	}
}
