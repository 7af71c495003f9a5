package link

import (
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"testing"
)

func TestRecvForeign(t *testing.T) {
	t.Run("Example", func(t *testing.T) {
		l := newTestLink(t, common.DefaultLinkConfig())
		feed(t, l, "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")

		got, err := l.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if !equalStrings(asStrings(got), []string{"foo", "bar"}) {
			t.Errorf("expected [foo bar], got %q", asStrings(got))
		}
		if !l.Foreign() {
			t.Error("expected foreign framing to be engaged")
		}
	})

	t.Run("LowerCasesCommand", func(t *testing.T) {
		l := newTestLink(t, common.DefaultLinkConfig())
		feed(t, l, "*2\r\n$3\r\nGET\r\n$3\r\nKey\r\n")

		got, err := l.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if !equalStrings(asStrings(got), []string{"get", "Key"}) {
			t.Errorf("expected [get Key], got %q", asStrings(got))
		}
	})

	t.Run("Partial", func(t *testing.T) {
		l := newTestLink(t, common.DefaultLinkConfig())
		full := "*2\r\n$3\r\nset\r\n$5\r\nhello\r\n"
		for i := 1; i < len(full); i++ {
			l.input.Reset()
			feed(t, l, full[:i])
			got, err := l.Recv()
			if err != nil || got != nil {
				t.Fatalf("prefix %q: expected no unit, got %q (err=%v)", full[:i], asStrings(got), err)
			}
			if l.InputLen() != i {
				t.Fatalf("prefix %q: partial input was consumed", full[:i])
			}
		}
		l.input.Reset()
		feed(t, l, full)
		got, err := l.Recv()
		if err != nil || !equalStrings(asStrings(got), []string{"set", "hello"}) {
			t.Fatalf("expected [set hello], got %q (err=%v)", asStrings(got), err)
		}
	})

	t.Run("StickyAdapterNativeInput", func(t *testing.T) {
		l := newTestLink(t, common.DefaultLinkConfig())
		feed(t, l, "*1\r\n$4\r\nping\r\n4\nping\n\n")

		if _, err := l.Recv(); err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got, err := l.Recv()
		if err != nil || !equalStrings(asStrings(got), []string{"ping"}) {
			t.Fatalf("expected native [ping], got %q (err=%v)", asStrings(got), err)
		}
		if !l.Foreign() {
			t.Error("foreign framing must stay engaged")
		}
	})

	t.Run("ProtocolErrors", func(t *testing.T) {
		inputs := []string{
			"*x\r\n",
			"*0\r\n",
			"*1\r\n+ping\r\n",
			"*1\r\n$4\r\npingX\r\n",
			"*1\r\n$99999999999\r\n",
			"*999999999999\r\n",
		}
		for _, input := range inputs {
			l := newTestLink(t, common.DefaultLinkConfig())
			feed(t, l, input)
			if _, err := l.Recv(); !errors.Is(err, ErrProtocol) {
				t.Errorf("input %q: expected ErrProtocol, got %v", input, err)
			}
		}
	})
}

func TestRecvForeignElementCount(t *testing.T) {
	cfg := common.DefaultLinkConfig()
	cfg.MaxPacketSize = 64

	t.Run("TooManyElements", func(t *testing.T) {
		l := newTestLink(t, cfg)
		feed(t, l, "*17\r\n")
		if _, err := l.Recv(); !errors.Is(err, ErrProtocol) {
			t.Fatalf("expected ErrProtocol, got %v", err)
		}
	})

	t.Run("EmptyElementsAtLimit", func(t *testing.T) {
		l := newTestLink(t, cfg)
		feed(t, l, "*16\r\n")
		got, err := l.Recv()
		if err != nil || got != nil {
			t.Fatalf("expected a pending unit, got %q (err=%v)", asStrings(got), err)
		}
	})
}

func TestSendForeign(t *testing.T) {
	tests := []struct {
		name    string
		request string
		reply   []string
		want    string
	}{
		{"Ping", "*1\r\n$4\r\nPING\r\n", []string{"ok"}, "+PONG\r\n"},
		{"Status", "*3\r\n$3\r\nset\r\n$1\r\nk\r\n$1\r\nv\r\n", []string{"ok"}, "+OK\r\n"},
		{"Bulk", "*2\r\n$3\r\nget\r\n$1\r\nk\r\n", []string{"ok", "value"}, "$5\r\nvalue\r\n"},
		{"NotFound", "*2\r\n$3\r\nget\r\n$1\r\nk\r\n", []string{"not_found"}, "$-1\r\n"},
		{"Integer", "*2\r\n$6\r\nexists\r\n$1\r\nk\r\n", []string{"ok", "1"}, ":1\r\n"},
		{"IntegerNotNumeric", "*2\r\n$6\r\nexists\r\n$1\r\nk\r\n", []string{"ok", "yes"}, "$3\r\nyes\r\n"},
		{"Array", "*4\r\n$4\r\nscan\r\n$0\r\n\r\n$0\r\n\r\n$2\r\n10\r\n", []string{"ok", "a", "1"}, "*2\r\n$1\r\na\r\n$1\r\n1\r\n"},
		{"ClientError", "*1\r\n$3\r\nfoo\r\n", []string{"client_error", "Unknown Command: foo"}, "-ERR Unknown Command: foo\r\n"},
		{"Error", "*2\r\n$3\r\nget\r\n$1\r\nk\r\n", []string{"error", "disk\nfull"}, "-ERR disk full\r\n"},
		{"Fail", "*2\r\n$3\r\nget\r\n$1\r\nk\r\n", []string{"fail"}, "-ERR fail\r\n"},
		{"Unknown", "*2\r\n$3\r\nget\r\n$1\r\nk\r\n", []string{"busy", "x"}, "*2\r\n$4\r\nbusy\r\n$1\r\nx\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLink(t, common.DefaultLinkConfig())
			feed(t, l, tt.request)
			if _, err := l.Recv(); err != nil {
				t.Fatalf("Recv failed: %v", err)
			}
			if err := l.SendStrings(tt.reply...); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if got := string(l.output.Readable()); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
