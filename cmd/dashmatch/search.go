// ABOUTME: One-shot CLI search for dashboards matching a query.
// ABOUTME: Loads embeddings, ranks them, and prints matches with embed URLs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/dashmatch/internal/state"
)

var searchTop int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find dashboards matching a description",
	Long:  "Embed the query, rank every dashboard on the host by similarity, and print the best matches.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchTop, "top", -1, "Maximum number of matches (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	query := strings.Join(args, " ")
	top := globalSession.Top()
	if cmd.Flags().Changed("top") {
		if searchTop < 0 {
			return fmt.Errorf("--top must be zero or greater")
		}
		top = searchTop
	}

	d := state.NewDispatcher(state.Initial())
	defer d.Close()

	if _, err := globalSession.Load(ctx, d); err != nil {
		return err
	}
	st, err := globalSession.SubmitTop(ctx, d, query, top)
	if err != nil {
		return err
	}

	if len(st.Matches) == 0 {
		fmt.Println("No matching dashboards found.")
		return nil
	}
	for _, m := range st.Matches {
		fmt.Printf("%d. %s  (id %s, score %.3f)\n", m.Rank+1, m.Title, m.DashboardID, m.Score)
		fmt.Printf("   %s\n", globalHost.EmbedURL(m.DashboardID))
	}
	return nil
}
