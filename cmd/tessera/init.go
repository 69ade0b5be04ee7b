package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Generate a starter manifest",
	Long:  `Writes a Loam manifest directory with two routes, ready for 'tessera navigate --watch'.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "site"
		if len(args) > 0 {
			dir = args[0]
		}
		if err := cli.Scaffold(context.Background(), dir); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done. Try: tessera navigate --watch", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
