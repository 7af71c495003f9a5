// Package client implements the client side of an rKV node. RPCStore
// implements store.IStore by sending the node's commands over one blocking
// link.Link in native framing.
//
// Key Components:
//
//   - NewRPCStore: Connects to config.Endpoint and returns the client. Failed
//     exchanges drop the link and are retried RetryCount times on a new one.
//
//   - Error mapping: "client_error" replies become *store.Error values with
//     RetCInvalidOperation, "error" replies RetCInternalError. Both are marked
//     with common.ErrReply, so callers can tell a refusing node from a broken
//     connection with errors.Is.
//
//   - Scan uses sync_scan, so the returned entries carry their versions.
//     SetIfNewer maps to sync_set.
//
//   - Request exposes the raw exchange; an RPCStore can be handed to the
//     migrator as the link to a node.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "localhost:8888",
//	  TimeoutSecond: 5,
//	  RetryCount:    2,
//	  Link:          common.DefaultLinkConfig(),
//	}
//
//	st, err := client.NewRPCStore(config)
//	if err != nil {
//	  return err
//	}
//	defer st.Close()
//
//	st.Set("mykey", []byte("myvalue"))
//	value, exists, _ := st.Get("mykey")
//
// Thread Safety:
//
//	RPCStore is safe for concurrent use. Calls are serialized on its single
//	link, so open several clients for parallel requests.
package client
