// ABOUTME: CLI command that asks the generative AI service to summarize a dashboard.
// ABOUTME: Fetches the dashboard's metadata from the host and prints the summary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/dashmatch/internal/embeddings"
	"github.com/2389-research/dashmatch/internal/genai"
	"github.com/2389-research/dashmatch/internal/models"
)

var summarizeQuery string

var summarizeCmd = &cobra.Command{
	Use:   "summarize <dashboard-id>",
	Short: "Summarize a dashboard with generative AI",
	Long:  "Summarize a dashboard from its metadata. With --query, also name the tile that best answers it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeQuery, "query", "", "Question the dashboard should answer")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := globalHost.Dashboard(ctx, args[0])
	if err != nil {
		return err
	}
	emb := models.NewDashboardEmbedding(*d, embeddings.BuildEmbeddingText(*d), nil)

	summary, err := genai.Summarize(ctx, globalAI, emb, summarizeQuery)
	if err != nil {
		return err
	}

	fmt.Println(emb.Title)
	fmt.Println(globalHost.EmbedURL(emb.DashboardID))
	fmt.Println()
	fmt.Println(summary)
	return nil
}
