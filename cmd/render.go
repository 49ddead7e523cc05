package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"physbook/internal/config"
	"physbook/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render Markdown chapters into HTML fragments",
	Long:  `Converts the Markdown sources into the HTML fragments the server lazy-loads, preserving the directory layout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		r := render.NewRenderer(cfg.SourceDir, cfg.ContentDir, cfg.Include, cfg.Exclude)
		r.Reporter = render.NewReporter()

		n, err := r.Render()
		if err != nil {
			return err
		}
		fmt.Printf("Rendered %d fragment(s) into %s\n", n, cfg.ContentDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
