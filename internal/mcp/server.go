// Package mcp exposes the offspring analyzer as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/logging"
)

// Server wraps an SDK server with the analyzer tools registered.
type Server struct {
	mcpServer *mcp.Server
	analyzer  *batch.Analyzer
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server named after cfg and registers every tool.
func NewServer(cfg domain.MCPConfig, analyzer *batch.Analyzer, opts ...ServerOption) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}

	s := &Server{analyzer: analyzer, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	name, version := cfg.ServerName, cfg.ServerVersion
	if name == "" {
		name = "abo-offspring-analyzer"
	}
	if version == "" {
		version = "1.0.0"
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	s.registerTools()

	s.logger.WithFields(logrus.Fields{
		"server_name":    name,
		"server_version": version,
		"tools":          len(toolNames),
	}).Info("MCP server initialized")
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves on the given transport.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}
