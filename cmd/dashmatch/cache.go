// ABOUTME: CLI commands for inspecting and clearing the embedding cache.
// ABOUTME: Work without host or AI credentials.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
	Long:  "Inspect or clear the on-disk cache of dashboard embedding vectors.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache location and size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached vector",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	if err := openCache(globalConfig); err != nil {
		return err
	}
	n, err := globalCache.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Path:    %s\n", globalCache.Path())
	fmt.Printf("Vectors: %d\n", n)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if err := openCache(globalConfig); err != nil {
		return err
	}
	if err := globalCache.Clear(); err != nil {
		return err
	}
	fmt.Printf("Cleared %s\n", globalCache.Path())
	return nil
}
