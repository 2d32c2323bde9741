// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the query result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss counters and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngines(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		s := e.cache.Stats()
		fmt.Printf("hits:    %d\nmisses:  %d\nentries: %d\n", s.Hits, s.Misses, s.Entries)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove all expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngines(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		removed := e.cache.Sweep(time.Now())
		fmt.Printf("swept %d expired entries\n", removed)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge [item-ids...]",
	Short: "Remove items from the catalog, both indexes, and the cache",
	Long: `Purge deletes the given item ids from the durable catalog, the vector
index, and the graph index, and eagerly drops every cache entry that
references them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("provide one or more item ids to purge")
		}

		e, err := openEngines(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		return e.pipeline.Purge(context.Background(), args, cmd.OutOrStdout())
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(purgeCmd)
}
