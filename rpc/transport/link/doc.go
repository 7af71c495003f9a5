// Package link implements the connection layer of a node: one Link per TCP
// connection, owning an input and an output buffer.Buffer and speaking two
// wire formats on the same socket.
//
// Native framing (the default):
//
//	<decimal length>\n<payload>\n   (repeated, CRLF accepted)
//	\n                               (end of unit)
//
// Leading blank lines are skipped. A unit may not exceed
// LinkConfig.MaxPacketSize (32 MiB by default).
//
// Foreign framing: a unit whose first byte is '*' is decoded as a RESP array
// of bulk strings into the same ordered value list, the command name
// lower-cased. From then on the link encodes all replies in RESP, mapping the
// status-first reply convention (see rpc/common) to status, bulk, integer,
// array, null and error replies. The framing is a tagged variant chosen by
// the first byte and kept for the link's lifetime.
//
// Lifecycle and I/O:
//
//	ln, _ := link.Listen("127.0.0.1", 8888, cfg)
//	c, _ := ln.Accept()
//	c.Read()           // socket -> input buffer
//	msg, _ := c.Recv() // input buffer -> one unit, no I/O
//	c.Send(reply...)   // one unit -> output buffer
//	c.Flush()          // output buffer -> socket
//
// Read and Write honor the non-blocking flag: a non-blocking Read returns
// (0, nil) when nothing is available and never suspends the caller. Request
// and Response are synchronous round trips that always block; they are meant
// for control-plane callers such as the migrator.
//
// Errors are marked with ErrConnect, ErrBind, ErrAccept, ErrTransport,
// ErrProtocol or ErrCapacity. Transport, protocol and capacity errors are
// fatal: the owner closes the link, the link performs no recovery itself.
//
// Thread-safety: A Link is owned by one goroutine at a time and carries no
// locks.
package link
