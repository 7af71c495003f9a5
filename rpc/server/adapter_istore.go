package server

import (
	"fmt"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/cockroachdb/errors"
	"reflect"
	"sort"
	"strconv"
)

// NewIStoreServerAdapter returns the adapter for the client key-value commands
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Commands() []common.Command {
	return []common.Command{
		common.CmdPing, common.CmdGet, common.CmdSet, common.CmdDelete,
		common.CmdExists, common.CmdScan, common.CmdInfo,
	}
}

func (adapter *iStoreServerAdapterImpl) Handle(cmd common.Command, args [][]byte, st store.IStore) [][]byte {
	// Check for nil store
	if st == nil {
		return common.NewErrorResponse(errors.New("handler: store is nil"))
	}

	switch cmd {
	case common.CmdPing:
		return common.NewOKResponse()

	case common.CmdGet:
		if len(args) != 1 {
			return wrongArgs(cmd)
		}
		val, ok, err := st.Get(string(args[0]))
		if err != nil {
			return storeFailure(err)
		}
		if !ok {
			return common.NewNotFoundResponse()
		}
		return common.NewOKResponse(val)

	case common.CmdSet:
		if len(args) != 2 {
			return wrongArgs(cmd)
		}
		if err := st.Set(string(args[0]), args[1]); err != nil {
			return storeFailure(err)
		}
		return common.NewOKResponse()

	case common.CmdDelete:
		if len(args) != 1 {
			return wrongArgs(cmd)
		}
		if err := st.Delete(string(args[0])); err != nil {
			return storeFailure(err)
		}
		return common.NewOKResponse()

	case common.CmdExists:
		if len(args) != 1 {
			return wrongArgs(cmd)
		}
		ok, err := st.Has(string(args[0]))
		if err != nil {
			return storeFailure(err)
		}
		if ok {
			return common.NewOKResponse([]byte("1"))
		}
		return common.NewOKResponse([]byte("0"))

	case common.CmdScan:
		start, end, limit, errReply := parseScanArgs(cmd, args)
		if errReply != nil {
			return errReply
		}
		entries, err := st.Scan(start, end, limit)
		if err != nil {
			return storeFailure(err)
		}
		values := make([][]byte, 0, 2*len(entries))
		for _, e := range entries {
			values = append(values, []byte(e.Key), e.Value)
		}
		return common.NewOKResponse(values...)

	case common.CmdInfo:
		return adapter.info(st)

	default:
		return unknownCommand(cmd)
	}
}

// info replies with name/value pairs describing the node
func (adapter *iStoreServerAdapterImpl) info(st store.IStore) [][]byte {
	info, err := st.GetDBInfo()
	if err != nil {
		return storeFailure(err)
	}
	min, max, err := st.KVRange()
	if err != nil {
		return storeFailure(err)
	}

	pairs := []string{
		"db_type", string(info.DbType),
		"keys", strconv.Itoa(info.Keys),
		"size_bytes", strconv.Itoa(info.SizeBytes),
		"features", info.FeatureNames(),
		"kv_range_min", min,
		"kv_range_max", max,
	}

	// engine specific metadata, flattened when it is a map
	if meta := reflect.ValueOf(info.Metadata); meta.Kind() == reflect.Map {
		keys := make([]string, 0, meta.Len())
		values := make(map[string]string, meta.Len())
		iter := meta.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			values[k] = fmt.Sprint(iter.Value().Interface())
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = append(pairs, k, values[k])
		}
	}

	out := make([][]byte, len(pairs))
	for i, p := range pairs {
		out[i] = []byte(p)
	}
	return common.NewOKResponse(out...)
}
