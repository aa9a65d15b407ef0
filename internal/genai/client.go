// ABOUTME: HTTP client for the generative-AI service (Generative Language API shape).
// ABOUTME: Provides embed(text) for matching and generate(prompt) for summaries.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2389-research/dashmatch/internal/remote"
)

const apiVersion = "/v1beta/"

// Client calls the generative-AI REST API.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	textModel  string
	client     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client = &http.Client{Timeout: d}
	}
}

// NewClient creates a generative-AI client for the given models.
func NewClient(baseURL, apiKey, embedModel, textModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		embedModel: embedModel,
		textModel:  textModel,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the embedding model name. Cached vectors are keyed by it.
func (c *Client) Model() string {
	return c.embedModel
}

// TextModel returns the text generation model name.
func (c *Client) TextModel() string {
	return c.textModel
}

// modelPath returns "models/<name>", accepting names that already carry the prefix.
func modelPath(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	model := modelPath(c.embedModel)
	req := embedRequest{
		Model:   model,
		Content: content{Parts: []part{{Text: text}}},
	}

	var resp embedResponse
	if err := c.post(ctx, "embed", model+":embedContent", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, remote.Wrap(remote.ServiceGenAI, "embed", fmt.Errorf("service returned an empty embedding"))
	}
	return resp.Embedding.Values, nil
}

// Generate returns the model's text completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	var resp generateResponse
	if err := c.post(ctx, "generate", modelPath(c.textModel)+":generateContent", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", remote.Wrap(remote.ServiceGenAI, "generate", fmt.Errorf("service returned no candidates"))
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", remote.Wrap(remote.ServiceGenAI, "generate", fmt.Errorf("service returned empty text"))
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return remote.Wrap(remote.ServiceGenAI, op, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+apiVersion+path, bytes.NewReader(body))
	if err != nil {
		return remote.Wrap(remote.ServiceGenAI, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	return remote.DoJSON(c.client, remote.ServiceGenAI, op, req, out)
}
