package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

// navigateCmd represents the navigate command
var navigateCmd = &cobra.Command{
	Use:   "navigate [manifest]",
	Short: "Navigate a page interactively",
	Long:  `Renders the start resource, then navigates to every resource typed on stdin and prints the composed page.`,
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		headless, _ := cmd.Flags().GetBool("headless")
		watchMode, _ := cmd.Flags().GetBool("watch")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		extra, _ := cmd.Flags().GetString("extra")

		err := cli.Execute(cli.RunOptions{
			EngineOptions: engineOptions(cmd, args),
			Start:         start,
			Headless:      headless,
			Watch:         watchMode,
			JSONLogs:      jsonLogs,
			Extra:         extra,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(navigateCmd)

	navigateCmd.Flags().String("start", "/", "Resource rendered first")
	navigateCmd.Flags().String("extra", "", "JSON object merged into the initial state")
	navigateCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, no styling)")
	navigateCmd.Flags().Bool("json-logs", false, "Write logs as JSON")
	navigateCmd.Flags().BoolP("watch", "w", false, "Re-render on manifest changes")

	// 'navigate' is the default if no command is provided.
	rootCmd.Run = navigateCmd.Run
}
