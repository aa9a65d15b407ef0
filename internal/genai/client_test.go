// ABOUTME: Tests for the generative-AI client and dashboard summaries.
// ABOUTME: Uses httptest to check request shape, auth header, and failure mapping.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/remote"
)

func TestEmbed(t *testing.T) {
	var receivedPath, receivedKey string
	var receivedBody embedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &receivedBody)
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "ai-key", "text-embedding-004", "gemini-1.5-flash")
	vec, err := client.Embed(context.Background(), "sales by region")
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}

	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("unexpected vector %v", vec)
	}
	if receivedPath != "/v1beta/models/text-embedding-004:embedContent" {
		t.Errorf("unexpected path %q", receivedPath)
	}
	if receivedKey != "ai-key" {
		t.Errorf("expected api key header, got %q", receivedKey)
	}
	if len(receivedBody.Content.Parts) != 1 || receivedBody.Content.Parts[0].Text != "sales by region" {
		t.Errorf("unexpected request body %+v", receivedBody)
	}
}

func TestEmbedModelPrefixNotDoubled(t *testing.T) {
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		_, _ = w.Write([]byte(`{"embedding":{"values":[1]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "models/embedding-001", "t")
	if _, err := client.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if receivedPath != "/v1beta/models/embedding-001:embedContent" {
		t.Errorf("unexpected path %q", receivedPath)
	}
}

func TestEmbedEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{"values":[]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", "t")
	_, err := client.Embed(context.Background(), "x")
	if !remote.IsServiceError(err) {
		t.Fatalf("expected ServiceError for empty embedding, got %v", err)
	}
}

func TestEmbedHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", "t")
	_, err := client.Embed(context.Background(), "x")

	var se *remote.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if se.Service != remote.ServiceGenAI || se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected error fields %+v", se)
	}
}

func TestGenerate(t *testing.T) {
	var receivedPath string
	var receivedBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &receivedBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Tracks revenue. "},{"text":"Best tile: Revenue."}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", "gemini-1.5-flash")
	text, err := client.Generate(context.Background(), "summarize")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if text != "Tracks revenue. Best tile: Revenue." {
		t.Errorf("unexpected text %q", text)
	}
	if receivedPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("unexpected path %q", receivedPath)
	}
	if len(receivedBody.Contents) != 1 || receivedBody.Contents[0].Parts[0].Text != "summarize" {
		t.Errorf("unexpected request body %+v", receivedBody)
	}
}

func TestGenerateNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", "t")
	if _, err := client.Generate(context.Background(), "p"); !remote.IsServiceError(err) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
}

func TestModelAccessors(t *testing.T) {
	client := NewClient("http://x", "k", "embed-m", "text-m")
	if client.Model() != "embed-m" {
		t.Errorf("expected embed-m, got %q", client.Model())
	}
	if client.TextModel() != "text-m" {
		t.Errorf("expected text-m, got %q", client.TextModel())
	}
}

type stubGenerator struct {
	prompt string
	text   string
	err    error
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

func TestSummaryPromptIncludesQuery(t *testing.T) {
	emb := models.DashboardEmbedding{DashboardID: "1", Title: "Sales", Text: "Sales\nRevenue tile"}

	withQuery := SummaryPrompt(emb, "quarterly revenue")
	if !strings.Contains(withQuery, `"quarterly revenue"`) {
		t.Errorf("expected quoted query in prompt:\n%s", withQuery)
	}
	if !strings.Contains(withQuery, "Revenue tile") {
		t.Errorf("expected metadata in prompt:\n%s", withQuery)
	}

	noQuery := SummaryPrompt(emb, "  ")
	if strings.Contains(noQuery, "best answers") {
		t.Errorf("expected no tile question without a query:\n%s", noQuery)
	}
}

func TestSummarize(t *testing.T) {
	g := &stubGenerator{text: "A sales dashboard."}
	emb := models.DashboardEmbedding{DashboardID: "1", Title: "Sales", Text: "Sales"}

	text, err := Summarize(context.Background(), g, emb, "")
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if text != "A sales dashboard." {
		t.Errorf("unexpected summary %q", text)
	}
	if !strings.Contains(g.prompt, "Dashboard: Sales") {
		t.Errorf("expected dashboard title in prompt, got:\n%s", g.prompt)
	}
}

func TestSummarizeErrors(t *testing.T) {
	emb := models.DashboardEmbedding{DashboardID: "9"}

	if _, err := Summarize(context.Background(), nil, emb, ""); err == nil {
		t.Error("expected error with nil generator")
	}

	g := &stubGenerator{err: errors.New("boom")}
	_, err := Summarize(context.Background(), g, emb, "")
	if err == nil || !strings.Contains(err.Error(), "dashboard 9") {
		t.Errorf("expected wrapped error naming dashboard, got %v", err)
	}
}
