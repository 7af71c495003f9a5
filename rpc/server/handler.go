package server

import (
	"bytes"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
)

// Handler dispatches requests to the adapter registered for their command.
//
// Thread-safety: Handle is safe for concurrent use as long as the store is.
type Handler struct {
	store    store.IStore
	adapters map[common.Command]IRPCServerAdapter
}

// NewHandler creates a handler serving st with the given adapters. Without
// adapters it registers the key-value and the cluster adapter.
func NewHandler(st store.IStore, adapters ...IRPCServerAdapter) *Handler {
	if len(adapters) == 0 {
		adapters = []IRPCServerAdapter{NewIStoreServerAdapter(), NewClusterServerAdapter()}
	}
	h := &Handler{
		store:    st,
		adapters: make(map[common.Command]IRPCServerAdapter),
	}
	for _, a := range adapters {
		for _, cmd := range a.Commands() {
			h.adapters[cmd] = a
		}
	}
	return h
}

// Handle executes one request and returns its reply
func (h *Handler) Handle(req [][]byte) [][]byte {
	metricRequests.Inc()
	if len(req) == 0 {
		metricClientErrors.Inc()
		return common.NewClientErrorResponse("empty request")
	}

	cmd := common.Command(bytes.ToLower(req[0]))
	adapter, ok := h.adapters[cmd]
	if !ok {
		return unknownCommand(common.Command(req[0]))
	}
	return adapter.Handle(cmd, req[1:], h.store)
}

// Request makes the handler usable wherever a remote node is expected,
// without a network in between
func (h *Handler) Request(values ...[]byte) ([][]byte, error) {
	return h.Handle(values), nil
}
