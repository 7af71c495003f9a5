package migration

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/lib/db"
	"github.com/ValentinKolb/rKV/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/rKV/lib/migrate"
	"github.com/ValentinKolb/rKV/rpc/client"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	// MigrateCommands represents the migration command group
	MigrateCommands = &cobra.Command{
		Use:               "migrate",
		Short:             "Move a key range from one node to another",
		PersistentPreRunE: setup,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Runs (or resumes) the migration described by the plan",
		Long:  `Runs the migration described by the plan until every key of the move range is on the destination, then hands over ownership. An interrupted run resumes from its checkpoint when started again with the same plan.`,
		Args:  cobra.NoArgs,
		RunE:  runMigration,
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Shows the recorded progress of the migration described by the plan",
		Args:  cobra.NoArgs,
		RunE:  showStatus,
	}

	plan *Plan
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	key := "plan"
	MigrateCommands.PersistentFlags().String(key, "plan.toml", util.WrapString("Path of the TOML migration plan"))

	key = "log-level"
	MigrateCommands.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	util.SetupRPCClientFlags(MigrateCommands)
	// the endpoints come from the plan
	_ = MigrateCommands.PersistentFlags().MarkHidden("endpoint")

	MigrateCommands.AddCommand(runCmd)
	MigrateCommands.AddCommand(statusCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}
	var err error
	plan, err = LoadPlan(viper.GetString("plan"))
	return err
}

// connect opens a client for the plan node n and resolves its initial range
func connect(n PlanNode) (*client.RPCStore, migrate.Node, error) {
	conf := util.GetClientConfig()
	conf.Endpoint = n.Endpoint

	st, err := client.NewRPCStore(*conf)
	if err != nil {
		return nil, migrate.Node{}, fmt.Errorf("connect to %s: %w", n.Name, err)
	}

	node := migrate.Node{Name: n.Name, Link: st}
	switch {
	case n.Empty:
		node.Range = migrate.EmptyRange
	case n.Range != nil:
		node.Range = *n.Range
	default:
		min, max, err := st.KVRange()
		if err != nil {
			_ = st.Close()
			return nil, migrate.Node{}, fmt.Errorf("read range of %s: %w", n.Name, err)
		}
		node.Range = migrate.KeyRange{Min: min, Max: max}
	}
	return st, node, nil
}

func openMeta() (db.KVDB, error) {
	return pebbledb.Open(pebbledb.Options{Dir: plan.MetaDir})
}

func runMigration(_ *cobra.Command, _ []string) error {
	srcStore, src, err := connect(plan.Source)
	if err != nil {
		return err
	}
	defer srcStore.Close()

	dstStore, dst, err := connect(plan.Dest)
	if err != nil {
		return err
	}
	defer dstStore.Close()

	meta, err := openMeta()
	if err != nil {
		return err
	}
	defer meta.Close()

	m, err := migrate.New(migrate.Config{
		Source:       src,
		Dest:         dst,
		Move:         plan.Move,
		Meta:         meta,
		BatchKeys:    plan.BatchKeys,
		BatchBytes:   plan.BatchBytes,
		LeaseTimeout: plan.LeaseTimeout,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = migrate.Run(ctx, m, plan.RunOptions())
	printStatus(m.Status())
	return err
}

func showStatus(_ *cobra.Command, _ []string) error {
	meta, err := openMeta()
	if err != nil {
		return err
	}
	defer meta.Close()

	src := migrate.Node{Name: plan.Source.Name}
	dst := migrate.Node{Name: plan.Dest.Name}
	if plan.Source.Range != nil {
		src.Range = *plan.Source.Range
	}
	if plan.Dest.Empty {
		dst.Range = migrate.EmptyRange
	} else if plan.Dest.Range != nil {
		dst.Range = *plan.Dest.Range
	}

	st, err := migrate.LoadStatus(meta, src, dst, plan.Move)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func printStatus(st migrate.Status) {
	fmt.Printf("%-12s %s\n", "state", st.State)
	fmt.Printf("%-12s %s\n", "move", st.Move)
	fmt.Printf("%-12s %s\n", "source", st.Source)
	fmt.Printf("%-12s %s\n", "dest", st.Dest)
	if st.HasCheckpoint {
		fmt.Printf("%-12s %q\n", "checkpoint", st.Checkpoint)
	}
	fmt.Printf("%-12s %d\n", "keys moved", st.KeysMoved)
	fmt.Printf("%-12s %d\n", "bytes moved", st.BytesMoved)
	fmt.Printf("%-12s %t\n", "finished", st.Finished)
}
