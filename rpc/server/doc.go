// Package server implements the node server of rKV. It accepts links on one
// TCP endpoint and answers the commands of one store.IStore, in native or
// foreign framing depending on what each client speaks.
//
// The package focuses on:
//   - Server-side request handling for the key-value and the cluster commands
//   - Adapter pattern to decouple store logic from the wire
//   - One goroutine per link, all links tracked for a clean shutdown
//
// Key Components:
//
//   - IRPCServerAdapter: Interface for a family of commands. Handle turns the
//     request values into store calls and the results into reply values.
//
//   - NewIStoreServerAdapter: ping, get, set, del, exists, scan and info.
//
//   - NewClusterServerAdapter: kv_range, set_kv_range, sync_scan, sync_set
//     and sync_del, the commands the migrator uses to copy and remove
//     versioned entries and to move range ownership.
//
//   - Handler: Maps command names (case-insensitive) to adapters. Unknown
//     commands get "client_error Unknown Command: <name>". Handler also
//     implements the migrator's Requester, which lets tests and embedded
//     setups talk to a store without a network.
//
//   - Server: Accept loop over a listening link.Link. Each accepted link is
//     driven in blocking mode by its own goroutine: read, answer every
//     complete request in the input buffer, flush once. Protocol or capacity
//     violations drop the link. When a metrics endpoint is configured the
//     server also serves /metrics (Prometheus text) and /debug/metrics
//     (go-metrics registry as JSON).
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint: "0.0.0.0:8888",
//	  Engine:   common.EnginePebble,
//	  DataDir:  "data",
//	  LogLevel: "info",
//	  Link:     common.DefaultLinkConfig(),
//	}
//
//	st, _ := lstore.NewLocalStore(factory)
//	s := server.NewRPCServer(config, st)
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Serve and Close may be called from different goroutines. Close stops the
//	listener, wakes all link goroutines, waits for them and closes the store.
//	A single link is never shared between goroutines.
package server
