package client

import (
	"context"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/db/engines/memdb"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
	"github.com/ValentinKolb/rKV/rpc/transport/link"
	"github.com/cockroachdb/errors"
	"testing"
)

func startServer(t *testing.T) string {
	t.Helper()
	st, err := lstore.NewLocalStore(func() (db.KVDB, error) { return memdb.NewMemDB(), nil })
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	s := server.NewRPCServer(common.ServerConfig{
		Endpoint: "127.0.0.1:0",
		Engine:   common.EngineMemory,
		Link:     common.DefaultLinkConfig(),
	}, st)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s.Addr().String()
}

func newClient(t *testing.T, endpoint string) *RPCStore {
	t.Helper()
	c, err := NewRPCStore(common.ClientConfig{
		Endpoint:      endpoint,
		TimeoutSecond: 5,
		RetryCount:    1,
		Link:          common.DefaultLinkConfig(),
	})
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRPCStore(t *testing.T) {
	c := newClient(t, startServer(t))

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		if err := c.Set("k", []byte("v\n")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, ok, err := c.Get("k")
		if err != nil || !ok || string(v) != "v\n" {
			t.Fatalf("Expected v, got %q (ok=%t, err=%v)", v, ok, err)
		}
		if ok, _ := c.Has("k"); !ok {
			t.Error("Expected Has to be true")
		}
		if err := c.Delete("k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, err := c.Get("k"); ok || err != nil {
			t.Errorf("Expected k to be gone, got ok=%t err=%v", ok, err)
		}
	})

	t.Run("SetIfNewerAndScan", func(t *testing.T) {
		if applied, err := c.SetIfNewer("s1", []byte("a"), 7); err != nil || !applied {
			t.Fatalf("Expected applied, got %t (err=%v)", applied, err)
		}
		if applied, _ := c.SetIfNewer("s1", []byte("b"), 7); applied {
			t.Error("Expected same version to be stale")
		}
		entries, err := c.Scan("s", "t", 0)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Key != "s1" || string(entries[0].Value) != "a" || entries[0].Version != 7 {
			t.Errorf("Unexpected entries %+v", entries)
		}
	})

	t.Run("DeleteIfNotNewer", func(t *testing.T) {
		if deleted, err := c.DeleteIfNotNewer("s1", 6); err != nil || deleted {
			t.Fatalf("Expected stale, got %t (err=%v)", deleted, err)
		}
		if deleted, err := c.DeleteIfNotNewer("s1", 7); err != nil || !deleted {
			t.Fatalf("Expected deleted, got %t (err=%v)", deleted, err)
		}
		if ok, _ := c.Has("s1"); ok {
			t.Error("Expected s1 to be gone")
		}
	})

	t.Run("KVRange", func(t *testing.T) {
		if err := c.SetKVRange("a", "q"); err != nil {
			t.Fatalf("SetKVRange failed: %v", err)
		}
		min, max, err := c.KVRange()
		if err != nil || min != "a" || max != "q" {
			t.Errorf("Expected [a, q), got [%q, %q) (err=%v)", min, max, err)
		}
	})

	t.Run("Info", func(t *testing.T) {
		info, err := c.GetDBInfo()
		if err != nil {
			t.Fatalf("GetDBInfo failed: %v", err)
		}
		if info.DbType != db.ImplMemDB {
			t.Errorf("Expected memdb, got %q", info.DbType)
		}
		if len(info.SupportedFeatures) == 0 {
			t.Error("Expected features to be reported")
		}
		meta, ok := info.Metadata.(map[string]string)
		if !ok || meta["kv_range_max"] != "q" {
			t.Errorf("Expected kv_range_max in metadata, got %v", info.Metadata)
		}
	})

	t.Run("ClientError", func(t *testing.T) {
		err := c.Set("\xffx", []byte("1"))
		if !errors.Is(err, common.ErrReply) || store.CodeOf(err) != store.RetCInvalidOperation {
			t.Errorf("Expected InvalidOperation reply error, got %v", err)
		}
		// the link survives a refused request
		if err := c.Ping(); err != nil {
			t.Errorf("Ping after refused request failed: %v", err)
		}
	})

	t.Run("RawRequest", func(t *testing.T) {
		reply, err := c.Request([]byte("nope"))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if string(reply[0]) != "client_error" || string(reply[1]) != "Unknown Command: nope" {
			t.Errorf("Unexpected reply %q", reply)
		}
	})
}

func TestRPCStoreErrors(t *testing.T) {
	t.Run("ConnectRefused", func(t *testing.T) {
		l, err := link.Listen("127.0.0.1", 0, common.DefaultLinkConfig())
		if err != nil {
			t.Fatalf("Listen failed: %v", err)
		}
		addr := l.Addr().String()
		_ = l.Close()

		_, err = NewRPCStore(common.ClientConfig{Endpoint: addr, Link: common.DefaultLinkConfig()})
		if !errors.Is(err, link.ErrConnect) {
			t.Errorf("Expected ErrConnect, got %v", err)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		c := newClient(t, startServer(t))
		_ = c.Close()
		if err := c.Ping(); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	})
}
