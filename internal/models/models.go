// ABOUTME: Core data models for dashboards, dashboard embeddings, and query matches.
// ABOUTME: Provides constructor functions and type definitions shared across dashmatch.
package models

import (
	"slices"
	"strings"
)

// Tile is a single element placed on a dashboard.
type Tile struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Dashboard is the metadata the analytics host exposes for one dashboard.
type Dashboard struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Tiles       []Tile `json:"tiles,omitempty"`
}

// DisplayTitle returns the dashboard title, or a placeholder naming its id.
func (d Dashboard) DisplayTitle() string {
	if strings.TrimSpace(d.Title) != "" {
		return d.Title
	}
	return "Untitled dashboard " + d.ID
}

// DashboardEmbedding pairs a dashboard with the vector computed from its metadata.
// Values are immutable once built.
type DashboardEmbedding struct {
	DashboardID string    `json:"dashboard_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Text        string    `json:"text"`
	Vector      []float32 `json:"vector"`
}

// NewDashboardEmbedding builds an embedding for d. The vector is copied so
// later changes to the caller's slice cannot leak in.
func NewDashboardEmbedding(d Dashboard, text string, vector []float32) DashboardEmbedding {
	return DashboardEmbedding{
		DashboardID: d.ID,
		Title:       d.DisplayTitle(),
		Description: d.Description,
		Text:        text,
		Vector:      slices.Clone(vector),
	}
}

// QueryMatch is one ranked result for a query. Rank is zero-based.
type QueryMatch struct {
	DashboardID string  `json:"dashboard_id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

// FindEmbedding returns the embedding with the given dashboard id.
func FindEmbedding(embeddings []DashboardEmbedding, id string) (DashboardEmbedding, bool) {
	for _, e := range embeddings {
		if e.DashboardID == id {
			return e, true
		}
	}
	return DashboardEmbedding{}, false
}

// ContainsMatch returns true if matches includes the given dashboard id.
func ContainsMatch(matches []QueryMatch, id string) bool {
	for _, m := range matches {
		if m.DashboardID == id {
			return true
		}
	}
	return false
}
