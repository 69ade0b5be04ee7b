package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tessera/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [manifest]",
	Short: "Export the manifest visualization",
	Long:  `Outputs a Mermaid diagram of routes, the fragments they place and the slots fragments may occupy.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := loadEngine(cmd, args)
		if err != nil {
			fmt.Printf("Error initializing tessera: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.GraphOverlay
		if route, _ := cmd.Flags().GetString("highlight"); route != "" {
			placement, err := engine.Placement(route)
			if err != nil {
				fmt.Printf("Error placing route %q: %v\n", route, err)
				os.Exit(1)
			}
			overlay = &graph.GraphOverlay{CurrentRoute: route, MountedSlots: placement}
		}

		fmt.Print(graph.GenerateMermaid(engine.Manifest(), overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("highlight", "", "Highlight a route and the slots it fills")
}
