package server

import (
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
)

// IRPCServerAdapter is the interface for all server adapters.
// An adapter serves a family of commands against a store.
type IRPCServerAdapter interface {
	// Commands returns the commands this adapter handles
	Commands() []common.Command
	// Handle executes one request and returns the reply values, status first.
	// args are the request values following the command name.
	// Failures are reported in the reply, never as a Go error.
	Handle(cmd common.Command, args [][]byte, store store.IStore) (reply [][]byte)
}
