package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes [manifest]",
	Short: "List routes and their slot placement",
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := loadEngine(cmd, args)
		if err != nil {
			fmt.Printf("Error initializing tessera: %v\n", err)
			os.Exit(1)
		}

		for _, r := range engine.Manifest().Routes {
			fmt.Printf("%s\t%s\n", r.Name, strings.Join(r.AllPaths(), ", "))
			placement, err := engine.Placement(r.Name)
			if err != nil {
				fmt.Printf("  ! %v\n", err)
				continue
			}
			slots := make([]string, 0, len(placement))
			for slot := range placement {
				slots = append(slots, slot)
			}
			sort.Strings(slots)
			for _, slot := range slots {
				fmt.Printf("  %s <- %s\n", slot, placement[slot])
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
