// Package rpc provides the network layer of an rKV node. It carries
// requests from clients and from the range migrator to a node and the
// replies back.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the command protocol, configuration structures, and logging.
//
//   - transport/link: The WireLink, a buffered TCP connection that frames
//     requests in the native length-prefixed format and transparently accepts
//     RESP arrays from Redis-style clients.
//
//   - client: A blocking client implementing store.IStore over one link,
//     used by the CLI and as the migrator's link to a node.
//
//   - server: Accepts links and dispatches commands to command adapters over
//     the node's store.
package rpc
