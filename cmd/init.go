package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"physbook/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up a new book with an interactive wizard",
	Long:  `Runs an interactive wizard that writes a .physbook.yml config and a starter book.yml manifest with the essential sections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, manifest, err := config.RunWizard()
		if err != nil {
			return err
		}
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		if err := manifest.Save(cfg.Manifest); err != nil {
			return err
		}
		fmt.Printf("Wrote %s and %s. Put your Markdown in %s/ and run `physbook render`.\n",
			cfgFile, cfg.Manifest, cfg.SourceDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
