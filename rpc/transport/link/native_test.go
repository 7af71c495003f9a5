package link

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/buffer"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"net"
	"strings"
	"testing"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// newTestLink returns a link over one end of an in-memory pipe. Tests feed
// bytes directly into its input buffer to simulate Read.
func newTestLink(t *testing.T, cfg common.LinkConfig) *Link {
	t.Helper()
	a, b := net.Pipe()
	l := New(a, cfg)
	t.Cleanup(func() {
		_ = l.Close()
		_ = b.Close()
	})
	return l
}

func feed(t *testing.T, l *Link, data string) {
	t.Helper()
	if err := l.input.AppendString(data); err != nil {
		t.Fatalf("failed to feed %d bytes: %v", len(data), err)
	}
}

func asStrings(values [][]byte) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Native framing
// --------------------------------------------------------------------------

func TestRecvNative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Example", "3\nfoo\n3\nbar\n\n", []string{"foo", "bar"}},
		{"CRLF", "3\r\nfoo\r\n3\r\nbar\r\n\r\n", []string{"foo", "bar"}},
		{"LeadingBlankLines", "\n\r\n\n3\nfoo\n\n", []string{"foo"}},
		{"EmptyPayload", "0\n\n3\nbar\n\n", []string{"", "bar"}},
		{"BinaryPayload", "4\na\nb\r\n\n", []string{"a\nb\r"}},
		{"MixedTerminators", "1\na\r\n1\nb\n\r\n", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLink(t, common.DefaultLinkConfig())
			feed(t, l, tt.input)

			got, err := l.Recv()
			if err != nil {
				t.Fatalf("Recv failed: %v", err)
			}
			if !equalStrings(asStrings(got), tt.want) {
				t.Errorf("expected %q, got %q", tt.want, asStrings(got))
			}
			if l.InputLen() != 0 {
				t.Errorf("expected input to be consumed, %d bytes left", l.InputLen())
			}
			if l.Foreign() {
				t.Error("native input must not engage foreign framing")
			}
		})
	}
}

func TestRecvMultipleUnits(t *testing.T) {
	l := newTestLink(t, common.DefaultLinkConfig())
	feed(t, l, "1\na\n\n2\nbc\n\n1\nd")

	first, err := l.Recv()
	if err != nil || !equalStrings(asStrings(first), []string{"a"}) {
		t.Fatalf("unexpected first unit %q (err=%v)", asStrings(first), err)
	}
	second, err := l.Recv()
	if err != nil || !equalStrings(asStrings(second), []string{"bc"}) {
		t.Fatalf("unexpected second unit %q (err=%v)", asStrings(second), err)
	}
	third, err := l.Recv()
	if err != nil || third != nil {
		t.Fatalf("expected partial unit to yield nothing, got %q (err=%v)", asStrings(third), err)
	}
	if got := string(l.input.Readable()); got != "1\nd" {
		t.Errorf("partial unit must not be consumed, got %q", got)
	}
}

func TestRecvPartial(t *testing.T) {
	l := newTestLink(t, common.DefaultLinkConfig())

	full := "5\nhello\n5\nworld\n\n"
	for i := 0; i < len(full); i++ {
		l.input.Reset()
		feed(t, l, full[:i])
		got, err := l.Recv()
		if err != nil {
			t.Fatalf("prefix %q: unexpected error %v", full[:i], err)
		}
		if got != nil {
			t.Fatalf("prefix %q: expected no unit, got %q", full[:i], asStrings(got))
		}
		if l.InputLen() != i {
			t.Fatalf("prefix %q: partial input was consumed", full[:i])
		}

		feed(t, l, full[i:])
		got, err = l.Recv()
		if err != nil {
			t.Fatalf("prefix %q: unexpected error after completion %v", full[:i], err)
		}
		if !equalStrings(asStrings(got), []string{"hello", "world"}) {
			t.Fatalf("prefix %q: expected full unit, got %q", full[:i], asStrings(got))
		}
	}
}

func TestRecvProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NonDigitLength", "3x\nfoo\n\n"},
		{"NegativeLength", "-1\nfoo\n\n"},
		{"SpaceInLength", "3 \nfoo\n\n"},
		{"HeaderTooLong", "123456789012345678901\nfoo\n\n"},
		{"UnterminatedHeaderTooLong", "1234567890123456789012345"},
		{"MissingTerminator", "3\nfooX\n\n"},
		{"ExceedsMaxPacket", "33554433\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLink(t, common.DefaultLinkConfig())
			feed(t, l, tt.input)

			got, err := l.Recv()
			if !errors.Is(err, ErrProtocol) {
				t.Fatalf("expected ErrProtocol, got %v (values %q)", err, asStrings(got))
			}
		})
	}
}

func TestRecvCumulativePacketLimit(t *testing.T) {
	cfg := common.DefaultLinkConfig()
	cfg.MaxPacketSize = 16
	l := newTestLink(t, cfg)

	// each record fits, the unit as a whole does not
	feed(t, l, "4\naaaa\n4\nbbbb\n4\ncccc\n\n")
	if _, err := l.Recv(); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestRecvGrowsInput(t *testing.T) {
	t.Run("Grows", func(t *testing.T) {
		cfg := common.DefaultLinkConfig()
		cfg.InitialBufferSize, cfg.MinBufferSize, cfg.MaxBufferSize = 8, 16, 64
		l := newTestLink(t, cfg)
		feed(t, l, "30\nxxxxxxxxxxxxx") // fills 16 bytes

		if l.input.Free() != 0 {
			t.Fatalf("test setup expects a full buffer, free=%d", l.input.Free())
		}
		got, err := l.Recv()
		if err != nil || got != nil {
			t.Fatalf("expected partial unit, got %q (err=%v)", asStrings(got), err)
		}
		if l.input.Cap() != 32 {
			t.Errorf("expected input to grow to 32, got %d", l.input.Cap())
		}
	})

	t.Run("Ceiling", func(t *testing.T) {
		cfg := common.DefaultLinkConfig()
		cfg.InitialBufferSize, cfg.MinBufferSize, cfg.MaxBufferSize = 8, 16, 32
		l := newTestLink(t, cfg)
		feed(t, l, "40\n"+strings.Repeat("x", 29))

		if _, err := l.Recv(); !errors.Is(err, ErrCapacity) {
			t.Fatalf("expected ErrCapacity, got %v", err)
		}
	})
}

// --------------------------------------------------------------------------
// Send
// --------------------------------------------------------------------------

func TestSendNative(t *testing.T) {
	l := newTestLink(t, common.DefaultLinkConfig())

	if err := l.Send(); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if l.OutputLen() != 0 {
		t.Fatalf("sending zero values must not produce output")
	}

	if err := l.SendStrings("a", "", "bc"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := string(l.output.Readable()); got != "1\na\n0\n\n2\nbc\n\n" {
		t.Errorf("unexpected encoding %q", got)
	}
}

// --------------------------------------------------------------------------
// Properties
// --------------------------------------------------------------------------

// TestNativeRoundTripChunked encodes arbitrary payload lists and feeds the
// bytes in chunks of arbitrary size. The unit must only appear once the last
// byte arrived and must reproduce the payloads in order.
func TestNativeRoundTripChunked(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chunked native input reassembles", prop.ForAll(
		func(payloads [][]byte, chunk int) bool {
			if len(payloads) == 0 {
				return true
			}

			encoded := buffer.New(buffer.Options{})
			if err := (nativeFraming{}).encode(encoded, payloads); err != nil {
				return false
			}
			wire := bytes.Clone(encoded.Readable())

			a, b := net.Pipe()
			defer a.Close()
			defer b.Close()
			l := New(a, common.DefaultLinkConfig())

			for pos := 0; pos < len(wire); pos += chunk {
				end := pos + chunk
				if end > len(wire) {
					end = len(wire)
				}
				if err := l.input.Append(wire[pos:end]); err != nil {
					return false
				}

				got, err := l.Recv()
				if err != nil {
					return false
				}
				if end < len(wire) {
					if got != nil {
						return false
					}
					continue
				}
				if len(got) != len(payloads) {
					return false
				}
				for i := range got {
					if !bytes.Equal(got[i], payloads[i]) {
						return false
					}
				}
			}
			return l.InputLen() == 0
		},
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}
