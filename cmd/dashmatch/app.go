// ABOUTME: Cobra command that opens the interactive dashboard search app.
// ABOUTME: Runs the bubbletea app model on the alternate screen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/dashmatch/internal/genai"
	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/tui"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Open the interactive dashboard search app",
	Long:  "Load dashboard embeddings, then search, browse matches, and view embed URLs and AI summaries.",
	RunE:  runApp,
}

func init() {
	rootCmd.AddCommand(appCmd)
}

func runApp(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summarize := func(ctx context.Context, emb models.DashboardEmbedding, query string) (string, error) {
		return genai.Summarize(ctx, globalAI, emb, query)
	}

	model := tui.NewAppModel(ctx, globalSession,
		tui.WithEmbedURL(globalHost.EmbedURL),
		tui.WithSummarizer(summarize),
		tui.WithModelNames(globalAI.Model(), globalAI.TextModel()),
	)

	globalLogger.Info("app starting", "host", globalHost.BaseURL())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
