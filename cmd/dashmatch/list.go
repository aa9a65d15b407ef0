// ABOUTME: CLI command listing the dashboards visible on the analytics host.
// ABOUTME: Reads the host's dashboard list without computing embeddings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dashboards on the analytics host",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dashboards, err := globalHost.ListDashboards(ctx)
	if err != nil {
		return err
	}
	if len(dashboards) == 0 {
		fmt.Println("No dashboards found.")
		return nil
	}
	for _, d := range dashboards {
		fmt.Printf("%-10s %s\n", d.ID, d.DisplayTitle())
	}
	return nil
}
