package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [manifest]",
	Short: "Check the manifest for consistency",
	Long:  `Loads the manifest, checks its references and computes the slot placement of every route.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Manifest is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// The engine validates references on load.
	eng, err := loadEngine(cmd, args)
	if err != nil {
		return err
	}

	for _, r := range eng.Manifest().Routes {
		if _, err := eng.Placement(r.Name); err != nil {
			return err
		}
	}
	return nil
}
