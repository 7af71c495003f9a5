package server

import (
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"strconv"
)

func wrongArgs(cmd common.Command) [][]byte {
	metricClientErrors.Inc()
	return common.NewClientErrorResponse("wrong number of arguments for " + string(cmd))
}

func unknownCommand(cmd common.Command) [][]byte {
	metricClientErrors.Inc()
	return common.NewClientErrorResponse("Unknown Command: " + string(cmd))
}

// storeFailure maps a store error to a reply. Refused operations are the
// client's fault, everything else is a server error.
func storeFailure(err error) [][]byte {
	switch store.CodeOf(err) {
	case store.RetCInvalidOperation:
		metricClientErrors.Inc()
		return common.NewClientErrorResponse(err.Error())
	default:
		metricServerErrors.Inc()
		Logger.Warningf("store failure: %v", err)
		return common.NewErrorResponse(err)
	}
}

// parseScanArgs parses "start end limit". An empty or missing limit means no limit.
func parseScanArgs(cmd common.Command, args [][]byte) (string, string, int, [][]byte) {
	if len(args) < 2 || len(args) > 3 {
		return "", "", 0, wrongArgs(cmd)
	}
	limit := 0
	if len(args) == 3 && len(args[2]) > 0 {
		n, err := strconv.Atoi(string(args[2]))
		if err != nil || n < 0 {
			metricClientErrors.Inc()
			return "", "", 0, common.NewClientErrorResponse("invalid limit " + strconv.Quote(string(args[2])))
		}
		limit = n
	}
	return string(args[0]), string(args[1]), limit, nil
}
