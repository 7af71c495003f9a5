package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/db/engines/memdb"
	"github.com/ValentinKolb/rKV/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an rKV node",
		Long:    `Start an rKV node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RKV_<flag> (e.g. RKV_DATA_DIR=/var/lib/rkv)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8888", cmdUtil.WrapString("The address on which the node will listen (host:port)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of the HTTP metrics listener (e.g. localhost:9888). Empty disables it"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Idle timeout of a client link in seconds (0 disables it)"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, string(common.EnginePebble), cmdUtil.WrapString("The storage engine of the node (pebble, memory)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory of the pebble engine"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	cmdUtil.SetupLinkFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Link = cmdUtil.GetLinkConfig()

	switch engine := common.EngineType(viper.GetString("engine")); engine {
	case common.EnginePebble, common.EngineMemory:
		serveCmdConfig.Engine = engine
	default:
		return fmt.Errorf("invalid engine: %s (expected one of: pebble, memory)", engine)
	}

	if serveCmdConfig.Engine == common.EnginePebble && serveCmdConfig.DataDir == "" {
		return fmt.Errorf("the pebble engine needs a data directory")
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// dbFactory returns the factory of the configured engine
func dbFactory(config *common.ServerConfig) store.DBFactory {
	switch config.Engine {
	case common.EngineMemory:
		return func() (db.KVDB, error) { return memdb.NewMemDB(), nil }
	default:
		return func() (db.KVDB, error) {
			return pebbledb.Open(pebbledb.Options{Dir: config.DataDir})
		}
	}
}

// run starts the node and serves until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	st, err := lstore.NewLocalStore(dbFactory(serveCmdConfig))
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, st)
	if err := serv.Listen(); err != nil {
		_ = st.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}
