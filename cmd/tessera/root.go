package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Tessera composes pages out of independently loaded fragments",
	Long:  `Tessera mounts, updates and unmounts fragments in the slots of a page as routes change.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("manifest", ".", "Manifest file (YAML/JSON) or Loam directory")
	rootCmd.PersistentFlags().Duration("import-timeout", 0, "Override the manifest import timeout")
	rootCmd.PersistentFlags().Bool("debug", false, "Log lifecycle events to stderr")
}

// manifestPath returns --manifest, or the first argument when the flag was not set.
func manifestPath(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("manifest")
	if !cmd.Flags().Changed("manifest") && len(args) > 0 {
		path = args[0]
	}
	return path
}
