// Package mcp exposes the book to MCP clients over stdio: section listing,
// rendered content retrieval, and the reader's saved position.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"physbook/internal/book"
	"physbook/internal/history"
	"physbook/internal/settings"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes book content tools.
type Server struct {
	bookID     string
	manifest   *book.Manifest
	contentDir string
	history    *history.Store  // optional
	settings   *settings.Store // optional
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(bookID string, m *book.Manifest, contentDir string, hs *history.Store, st *settings.Store) *Server {
	s := &Server{
		bookID:     bookID,
		manifest:   m,
		contentDir: contentDir,
		history:    hs,
		settings:   st,
	}

	s.mcp = server.NewMCPServer(
		"physbook",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listSectionsTool, s.handleListSections)
	s.mcp.AddTool(getSectionTool, s.handleGetSection)
	s.mcp.AddTool(getReadingPositionTool, s.handleGetReadingPosition)
	s.mcp.AddTool(getSettingsTool, s.handleGetSettings)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
