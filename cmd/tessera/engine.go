package main

import (
	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

func engineOptions(cmd *cobra.Command, args []string) cli.EngineOptions {
	timeout, _ := cmd.Flags().GetDuration("import-timeout")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.EngineOptions{
		ManifestPath:  manifestPath(cmd, args),
		ImportTimeout: timeout,
		Debug:         debug,
	}
}

func loadEngine(cmd *cobra.Command, args []string) (*tessera.Engine, error) {
	return tessera.New(manifestPath(cmd, args))
}
