package server

import (
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/db/engines/memdb"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) store.IStore {
	t.Helper()
	st, err := lstore.NewLocalStore(func() (db.KVDB, error) { return memdb.NewMemDB(), nil })
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return st
}

func req(values ...string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

func joined(values [][]byte) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

func TestHandler(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	h := NewHandler(st)

	// steps run in order and share the store
	steps := []struct {
		name     string
		request  [][]byte
		expected string
	}{
		{"Ping", req("ping"), "ok"},
		{"PingUpperCase", req("PING"), "ok"},
		{"GetMissing", req("get", "a"), "not_found"},
		{"Set", req("set", "a", "1"), "ok"},
		{"Get", req("get", "a"), "ok|1"},
		{"SetBinary", req("set", "b", "x\n\r\x00y"), "ok"},
		{"GetBinary", req("get", "b"), "ok|x\n\r\x00y"},
		{"Exists", req("exists", "a"), "ok|1"},
		{"ExistsMissing", req("exists", "zz"), "ok|0"},
		{"Scan", req("scan", "", "", "10"), "ok|a|1|b|x\n\r\x00y"},
		{"ScanLimit", req("scan", "", "", "1"), "ok|a|1"},
		{"ScanNoLimit", req("scan", "b", ""), "ok|b|x\n\r\x00y"},
		{"Delete", req("del", "a"), "ok"},
		{"DeleteMissing", req("del", "a"), "ok"},
		{"KVRangeDefault", req("kv_range"), "ok||"},
		{"SetKVRange", req("set_kv_range", "a", "m"), "ok"},
		{"KVRange", req("kv_range"), "ok|a|m"},
		{"SyncSetApplied", req("sync_set", "c", "v", "10"), "ok|applied"},
		{"SyncSetStale", req("sync_set", "c", "w", "10"), "ok|stale"},
		{"SyncScan", req("sync_scan", "c", "d", "5"), "ok|c|v|10"},
		{"SyncDelNewerSurvives", req("sync_del", "c", "9"), "ok|stale"},
		{"SyncDelApplied", req("sync_del", "c", "10"), "ok|applied"},
		{"SyncDelMissing", req("sync_del", "c", "10"), "ok|applied"},
		{"GetAfterSyncDel", req("get", "c"), "not_found"},

		{"Unknown", req("flushall"), "client_error|Unknown Command: flushall"},
		{"Empty", [][]byte{}, "client_error|empty request"},
		{"GetWrongArgs", req("get"), "client_error|wrong number of arguments for get"},
		{"SetWrongArgs", req("set", "a"), "client_error|wrong number of arguments for set"},
		{"ScanBadLimit", req("scan", "", "", "x"), "client_error|invalid limit \"x\""},
		{"SyncSetBadVersion", req("sync_set", "c", "v", "-1"), "client_error|invalid version \"-1\""},
		{"SyncDelBadVersion", req("sync_del", "c", "x"), "client_error|invalid version \"x\""},
		{"SyncDelWrongArgs", req("sync_del", "c"), "client_error|wrong number of arguments for sync_del"},
		{"InvertedRange", req("set_kv_range", "z", "a"), "client_error|InvalidOperation: range min is greater than max"},
		{"ReservedKey", req("set", "\xffx", "1"), "client_error|InvalidOperation: key uses the reserved prefix"},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			if got := joined(h.Handle(tt.request)); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestHandlerInfo(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	h := NewHandler(st)
	h.Handle(req("set", "a", "1"))

	reply := h.Handle(req("info"))
	if string(reply[0]) != "ok" || len(reply)%2 != 1 {
		t.Fatalf("Expected ok with name/value pairs, got %q", joined(reply))
	}
	info := make(map[string]string)
	for i := 1; i+1 < len(reply); i += 2 {
		info[string(reply[i])] = string(reply[i+1])
	}
	if info["db_type"] != "memdb" {
		t.Errorf("Expected db_type memdb, got %q", info["db_type"])
	}
	if info["keys"] != "1" {
		t.Errorf("Expected 1 key, got %q", info["keys"])
	}
}
