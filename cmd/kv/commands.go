package kv

import (
	"fmt"
	"github.com/spf13/cobra"
	"sort"
	"strconv"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Set(args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := rpcStore.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ok, err := rpcStore.Has(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v\n", key, ok)
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [start] [end] [limit]",
		Short: "Lists the entries in [start, end), an empty end means unbounded",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, limit := args[0], "", 0
			if len(args) > 1 {
				end = args[1]
			}
			if len(args) > 2 {
				n, err := strconv.Atoi(args[2])
				if err != nil || n < 0 {
					return fmt.Errorf("limit must be a non-negative number: %s", args[2])
				}
				limit = n
			}
			entries, err := rpcStore.Scan(start, end, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("key=%s, version=%d, value=%s\n", e.Key, e.Version, e.Value)
			}
			fmt.Printf("%d entries\n", len(entries))
			return nil
		},
	}
	rangeCmd = &cobra.Command{
		Use:   "range [min] [max]",
		Short: "Shows the key range owned by the node, or sets it when min and max are given",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				if err := rpcStore.SetKVRange(args[0], args[1]); err != nil {
					return err
				}
				fmt.Println("range set successfully")
				return nil
			}
			min, max, err := rpcStore.KVRange()
			if err != nil {
				return err
			}
			fmt.Printf("min=%q, max=%q\n", min, max)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows the database information of the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.Info()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(info))
			for name := range info {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%-16s %s\n", name, info[name])
			}
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks that the node answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Ping(); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
)
