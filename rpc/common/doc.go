// Package common provides the data structures and utilities shared by the
// link, the node server, the client and the migrator.
//
// The package focuses on:
//   - The command vocabulary and the reply convention spoken over a link
//   - Configuration structures for links, servers and clients
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Command / Status: A message is an ordered list of byte strings. Requests
//     start with the command name (e.g. "set", "sync_scan"), replies start with
//     a status ("ok", "not_found", "error", "fail", "client_error"). Factory
//     functions build every request and response so that server, client and
//     migrator agree on argument order.
//
//   - Reply: Parsed reply with a helper to turn non-ok statuses into errors
//     marked with ErrReply.
//
//   - LinkConfig: Buffer sizes, packet limit and socket options passed
//     explicitly to every link.
//
//   - ServerConfig / ClientConfig: Settings of the node server and of the
//     command line client, each with a printable report.
//
//   - Logger: dragonboat logger.ILogger implementation rendering through a
//     zerolog console writer. Packages obtain their logger once with
//     logger.GetLogger("<name>"), InitLoggers installs the factory and level.
package common
