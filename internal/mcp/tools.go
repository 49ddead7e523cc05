package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listSectionsTool defines the list_sections MCP tool.
var listSectionsTool = mcp.NewTool("list_sections",
	mcp.WithDescription("List the book's sections in reading order, with titles and flags."),
)

// getSectionTool defines the get_section MCP tool.
var getSectionTool = mcp.NewTool("get_section",
	mcp.WithDescription("Get the rendered HTML fragment for a section."),
	mcp.WithString("section_id",
		mcp.Required(),
		mcp.Description("Section id from list_sections"),
	),
)

// getReadingPositionTool defines the get_reading_position MCP tool.
var getReadingPositionTool = mcp.NewTool("get_reading_position",
	mcp.WithDescription("Get the reader's last saved section for this book."),
)

// getSettingsTool defines the get_settings MCP tool.
var getSettingsTool = mcp.NewTool("get_settings",
	mcp.WithDescription("Get the reader's current settings as JSON."),
)
