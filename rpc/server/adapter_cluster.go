package server

import (
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"strconv"
)

// NewClusterServerAdapter returns the adapter for the commands nodes and the
// migrator exchange: range ownership and versioned copies
func NewClusterServerAdapter() IRPCServerAdapter {
	return &clusterServerAdapterImpl{}
}

type clusterServerAdapterImpl struct{}

func (adapter *clusterServerAdapterImpl) Commands() []common.Command {
	return []common.Command{
		common.CmdKVRange, common.CmdSetKVRange, common.CmdSyncScan, common.CmdSyncSet,
		common.CmdSyncDel,
	}
}

func (adapter *clusterServerAdapterImpl) Handle(cmd common.Command, args [][]byte, st store.IStore) [][]byte {
	switch cmd {
	case common.CmdKVRange:
		if len(args) != 0 {
			return wrongArgs(cmd)
		}
		min, max, err := st.KVRange()
		if err != nil {
			return storeFailure(err)
		}
		return common.NewOKResponse([]byte(min), []byte(max))

	case common.CmdSetKVRange:
		if len(args) != 2 {
			return wrongArgs(cmd)
		}
		if err := st.SetKVRange(string(args[0]), string(args[1])); err != nil {
			return storeFailure(err)
		}
		return common.NewOKResponse()

	case common.CmdSyncScan:
		start, end, limit, errReply := parseScanArgs(cmd, args)
		if errReply != nil {
			return errReply
		}
		entries, err := st.Scan(start, end, limit)
		if err != nil {
			return storeFailure(err)
		}
		values := make([][]byte, 0, 3*len(entries))
		for _, e := range entries {
			values = append(values, []byte(e.Key), e.Value, []byte(strconv.FormatUint(e.Version, 10)))
		}
		return common.NewOKResponse(values...)

	case common.CmdSyncSet:
		if len(args) != 3 {
			return wrongArgs(cmd)
		}
		version, errReply := parseVersion(args[2])
		if errReply != nil {
			return errReply
		}
		applied, err := st.SetIfNewer(string(args[0]), args[1], version)
		if err != nil {
			return storeFailure(err)
		}
		return syncResponse(applied)

	case common.CmdSyncDel:
		if len(args) != 2 {
			return wrongArgs(cmd)
		}
		version, errReply := parseVersion(args[1])
		if errReply != nil {
			return errReply
		}
		deleted, err := st.DeleteIfNotNewer(string(args[0]), version)
		if err != nil {
			return storeFailure(err)
		}
		return syncResponse(deleted)

	default:
		return unknownCommand(cmd)
	}
}

func parseVersion(arg []byte) (uint64, [][]byte) {
	version, err := strconv.ParseUint(string(arg), 10, 64)
	if err != nil {
		return 0, common.NewClientErrorResponse("invalid version " + strconv.Quote(string(arg)))
	}
	return version, nil
}

func syncResponse(applied bool) [][]byte {
	if applied {
		return common.NewOKResponse([]byte(common.SyncApplied))
	}
	return common.NewOKResponse([]byte(common.SyncStale))
}
