package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"physbook/internal/book"
	"physbook/internal/config"
	"physbook/internal/events"
	"physbook/internal/fragment"
	"physbook/internal/history"
	"physbook/internal/server"
	"physbook/internal/settings"
)

var (
	servePort   int
	serveStatic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the book server",
	Long:  `Serves the reader shell, the rendered fragments, the JSON API, and the websocket reader sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort > 0 {
			cfg.Port = servePort
		}

		manifest, err := book.LoadManifest(cfg.Manifest)
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}

		bus := events.NewBus()
		defer bus.Close()

		settingsStore := settings.NewStore(filepath.Join(cfg.DataDir, "settings.json"), bus)
		if _, err := settingsStore.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		}

		historyStore, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer historyStore.Close()

		// Sessions fetch fragments through the server's own /content
		// mount, so the multi-candidate resolution and cache-busting
		// behave exactly as a remote client's would.
		pageURL, err := url.Parse(fmt.Sprintf("http://localhost:%d/", cfg.Port))
		if err != nil {
			return err
		}
		fetcher := fragment.NewFetcher(fragment.NewResolver(pageURL), &http.Client{Timeout: 15 * time.Second})

		srv := server.New(server.Config{
			Port:         cfg.Port,
			BookID:       cfg.BookID,
			ContentDir:   cfg.ContentDir,
			StaticDir:    serveStatic,
			AllowAll:     cfg.AllowAll,
			LockDuration: time.Duration(cfg.LockMillis) * time.Millisecond,
		}, manifest, settingsStore, bus, historyStore, fetcher)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "override the configured port")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory with reader shell assets")
	rootCmd.AddCommand(serveCmd)
}
