package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"physbook/internal/book"
	"physbook/internal/config"
	"physbook/internal/history"
	mcpserver "physbook/internal/mcp"
	"physbook/internal/settings"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the book's sections and reading state to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		manifest, err := book.LoadManifest(cfg.Manifest)
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}

		settingsStore := settings.NewStore(filepath.Join(cfg.DataDir, "settings.json"), nil)
		if _, err := settingsStore.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		}

		// History is optional here: the tools degrade gracefully without it.
		historyStore, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open history: %v\n", err)
			historyStore = nil
		} else {
			defer historyStore.Close()
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "physbook MCP server started on stdio (book=%s, sections=%d)\n",
			cfg.BookID, len(manifest.Sections))

		srv := mcpserver.NewServer(cfg.BookID, manifest, cfg.ContentDir, historyStore, settingsStore)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
