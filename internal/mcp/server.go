// ABOUTME: MCP server initialization and configuration for dashmatch.
// ABOUTME: Exposes dashboard search, listing, and summaries to AI agents over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/dashmatch/internal/genai"
	"github.com/2389-research/dashmatch/internal/logging"
	"github.com/2389-research/dashmatch/internal/session"
	"github.com/2389-research/dashmatch/internal/state"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with a dashboard matching session.
type Server struct {
	mcp        *gomcp.Server
	session    *session.Session
	dispatcher *state.Dispatcher
	generator  genai.Generator
	embedURL   func(id string) string
	logger     *slog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithGenerator enables the summarize_dashboard tool.
func WithGenerator(g genai.Generator) ServerOption {
	return func(s *Server) {
		s.generator = g
	}
}

// WithEmbedURL sets how results link to the host's embedded viewer.
func WithEmbedURL(fn func(id string) string) ServerOption {
	return func(s *Server) {
		s.embedURL = fn
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewServer creates an MCP server over sess. Embeddings load lazily on the
// first tool call.
func NewServer(sess *session.Session, opts ...ServerOption) (*Server, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "dashmatch",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcp:        mcpServer,
		session:    sess,
		dispatcher: state.NewDispatcher(state.Initial()),
		embedURL:   func(string) string { return "" },
		logger:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerDashboardTools()
	go s.logTransitions(s.dispatcher.Subscribe())

	return s, nil
}

// logTransitions records load progress and errors until the dispatcher closes.
func (s *Server) logTransitions(states <-chan state.State) {
	for st := range states {
		s.logger.Debug("dashboard state changed",
			"loading", st.LoadingEmbeddings,
			"dashboards", len(st.Embeddings),
			"error", st.ErrorMessage,
		)
	}
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

// Close releases the server's state dispatcher.
func (s *Server) Close() {
	s.dispatcher.Close()
}
