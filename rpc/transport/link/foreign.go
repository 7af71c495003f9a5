package link

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/buffer"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/tidwall/redcon"
	"strconv"
)

// --------------------------------------------------------------------------
// Foreign framing (RESP arrays of bulk strings)
// --------------------------------------------------------------------------

// foreignFraming decodes requests of the form
//
//	*<n>\r\n$<len>\r\n<payload>\r\n ...
//
// into the same value list the native framing produces, and encodes replies
// that follow the native status-first convention into RESP replies. It
// remembers the command of the last request to shape the reply.
type foreignFraming struct {
	lastCmd common.Command
	scratch []byte
}

func newForeignFraming() *foreignFraming {
	metricForeignLinks.Inc()
	return &foreignFraming{}
}

func (f *foreignFraming) decode(in *buffer.Buffer, limit int) ([][]byte, error) {
	data := in.Readable()
	if len(data) == 0 || data[0] != '*' {
		return nil, protocolError("foreign request must start with '*'")
	}

	count, pos, ok, err := readRESPHeader(data, 0, '*')
	if err != nil || !ok {
		return nil, err
	}
	if count < 1 {
		return nil, protocolError("foreign request with %d elements", count)
	}
	// every element takes at least "$0\n\n"
	if count > limit/minBulkLen {
		return nil, protocolError("foreign request with %d elements exceeds max packet size of %d bytes", count, limit)
	}

	var values [][]byte
	for i := 0; i < count; i++ {
		if pos >= len(data) {
			return nil, nil
		}
		if data[pos] != '$' {
			return nil, protocolError("expected bulk string, got %q", data[pos])
		}

		size, body, ok, err := readRESPHeader(data, pos, '$')
		if err != nil || !ok {
			return nil, err
		}
		if body+size > limit {
			return nil, protocolError("unit exceeds max packet size of %d bytes", limit)
		}
		if body+size > len(data) {
			return nil, nil
		}

		next, complete, err := skipTerminator(data, body+size)
		if err != nil || !complete {
			return nil, err
		}

		values = append(values, bytes.Clone(data[body:body+size]))
		pos = next
	}

	if err := in.AdvanceRead(pos); err != nil {
		return nil, err
	}

	values[0] = bytes.ToLower(values[0])
	f.lastCmd = common.Command(values[0])
	return values, nil
}

// minBulkLen is the wire size of an empty bulk string with bare LF terminators.
const minBulkLen = len("$0\n\n")

// readRESPHeader parses "<prefix><decimal>\r\n" at data[pos:]. ok is false if
// the line is not complete yet.
func readRESPHeader(data []byte, pos int, prefix byte) (n, next int, ok bool, err error) {
	nl := bytes.IndexByte(data[pos:], '\n')
	if nl < 0 {
		if len(data)-pos >= maxHeaderLen {
			return 0, 0, false, protocolError("%c header exceeds %d bytes", prefix, maxHeaderLen)
		}
		return 0, 0, false, nil
	}
	if nl+1 > maxHeaderLen {
		return 0, 0, false, protocolError("%c header exceeds %d bytes", prefix, maxHeaderLen)
	}
	n, valid := parseLength(data[pos+1 : pos+nl])
	if !valid {
		return 0, 0, false, protocolError("malformed %c header %q", prefix, data[pos:pos+nl])
	}
	return n, pos + nl + 1, true, nil
}

func (f *foreignFraming) encode(out *buffer.Buffer, values [][]byte) error {
	status := common.Status(values[0])
	rest := values[1:]

	b := f.scratch[:0]
	switch status {
	case common.StatusOK:
		switch {
		case len(rest) == 0 && f.lastCmd == common.CmdPing:
			b = redcon.AppendString(b, "PONG")
		case len(rest) == 0:
			b = redcon.AppendOK(b)
		case len(rest) == 1 && common.IntegerCommands[f.lastCmd]:
			if n, err := strconv.ParseInt(string(rest[0]), 10, 64); err == nil {
				b = redcon.AppendInt(b, n)
			} else {
				b = redcon.AppendBulk(b, rest[0])
			}
		case len(rest) == 1:
			b = redcon.AppendBulk(b, rest[0])
		default:
			b = appendArray(b, rest)
		}
	case common.StatusNotFound:
		b = redcon.AppendNull(b)
	case common.StatusError, common.StatusFail, common.StatusClientError:
		msg := string(bytes.Join(rest, []byte(" ")))
		if msg == "" {
			msg = string(status)
		}
		b = redcon.AppendError(b, "ERR "+msg)
	default:
		b = appendArray(b, values)
	}

	f.scratch = b
	return out.Append(b)
}

func appendArray(b []byte, values [][]byte) []byte {
	b = redcon.AppendArray(b, len(values))
	for _, v := range values {
		b = redcon.AppendBulk(b, v)
	}
	return b
}
