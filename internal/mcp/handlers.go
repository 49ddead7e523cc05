package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleListSections returns the manifest as a readable listing.
func (s *Server) handleListSections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.manifest.Title)
	for i, sec := range s.manifest.Sections {
		fmt.Fprintf(&b, "%d. %s (id: %s)", i+1, s.manifest.FriendlyTitle(sec.ID), sec.ID)
		var flags []string
		if s.manifest.IsEssential(sec.ID) {
			flags = append(flags, "essential")
		}
		if sec.Visualization {
			flags = append(flags, "visualization")
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetSection reads a section's rendered fragment from the content
// directory.
func (s *Server) handleGetSection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: section_id"), nil
	}

	sec := s.manifest.Section(id)
	if sec == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown section %q, see list_sections", id)), nil
	}

	path := filepath.Join(s.contentDir, filepath.FromSlash(sec.DiskSource()))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"No rendered content for %q. Run `physbook render` to generate it.", id,
			)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read section: %v", err)), nil
	}

	return mcp.NewToolResultText(string(content)), nil
}

// handleGetReadingPosition returns the saved reading position.
func (s *Server) handleGetReadingPosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("reading history is not enabled"), nil
	}
	pos, err := s.history.Position(ctx, s.bookID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read position: %v", err)), nil
	}
	if pos == "" {
		return mcp.NewToolResultText("No saved position; the reader starts at the cover."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Last read section: %s (%s)", pos, s.manifest.FriendlyTitle(pos))), nil
}

// handleGetSettings returns the settings blob as JSON.
func (s *Server) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.settings == nil {
		return mcp.NewToolResultError("settings store is not configured"), nil
	}
	data, err := json.MarshalIndent(s.settings.Get(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode settings: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
