// Package cmd implements the command-line interface of rKV. It provides a
// hierarchical command structure for running a node, talking to a node as a
// client and moving key ranges between nodes.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a node (pebble or in-memory engine) and its metrics listener
//   - kv: Commands for key-value operations on one node (get, set, scan, range, ...)
//   - migration: Runs or inspects a range migration described by a TOML plan
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through an RKV_ prefixed environment variable,
// .env and .env.local files are loaded first.
//
// See rkv -help for a list of all commands.
package cmd
