package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "physbook",
	Short: "Interactive physics textbook server",
	Long: `Physbook renders Markdown chapters into HTML fragments and serves them
as an interactive book: sections load lazily as the reader scrolls,
stay bounded in memory, and the reading position survives restarts.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".physbook.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
