// ABOUTME: Dashboard summarization on top of the text generation endpoint.
// ABOUTME: Builds the prompt that asks for a summary and the tile closest to a query.
package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/dashmatch/internal/models"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SummaryPrompt builds the prompt used to summarize a dashboard. When query
// is non-empty the model is also asked which tile best answers it.
func SummaryPrompt(emb models.DashboardEmbedding, query string) string {
	var b strings.Builder
	b.WriteString("You are helping a user find the right analytics dashboard.\n")
	b.WriteString("Summarize the dashboard below in two or three sentences for a business user.\n")
	if q := strings.TrimSpace(query); q != "" {
		fmt.Fprintf(&b, "Then name the single tile that best answers the request %q and say why in one sentence.\n", q)
	}
	b.WriteString("Only use the metadata given. Do not invent metrics.\n\n")
	fmt.Fprintf(&b, "Dashboard: %s\n", emb.Title)
	b.WriteString("Metadata:\n")
	b.WriteString(emb.Text)
	return b.String()
}

// Summarize asks g for a short summary of the dashboard described by emb.
func Summarize(ctx context.Context, g Generator, emb models.DashboardEmbedding, query string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("no text generator configured")
	}
	text, err := g.Generate(ctx, SummaryPrompt(emb, query))
	if err != nil {
		return "", fmt.Errorf("summarize dashboard %s: %w", emb.DashboardID, err)
	}
	return text, nil
}
