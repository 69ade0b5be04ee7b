package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

const sessionKeyEnv = "TESSERA_SESSION_KEY"

var serveCmd = &cobra.Command{
	Use:   "serve [manifest]",
	Short: "Start the HTTP server",
	Long: `Serves server-side sessions over HTTP: navigation, composed markup, status events (SSE) and metrics.

Set TESSERA_SESSION_KEY to a base64 encoded 32 byte key to encrypt stored sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		ttl, _ := cmd.Flags().GetDuration("session-ttl")
		watchMode, _ := cmd.Flags().GetBool("watch")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		sessionDir, _ := cmd.Flags().GetString("session-dir")
		maskKeys, _ := cmd.Flags().GetStringSlice("mask")

		key, err := sessionKey()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		err = cli.RunServe(cli.ServeOptions{
			HostOptions: cli.HostOptions{
				EngineOptions: engineOptions(cmd, args),
				RedisAddr:     redisAddr,
				SessionTTL:    ttl,
				SessionDir:    sessionDir,
				SessionKey:    key,
				MaskKeys:      maskKeys,
			},
			Port:     port,
			Watch:    watchMode,
			JSONLogs: jsonLogs,
		})
		if err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for sessions, locks and status events (default: in memory)")
	serveCmd.Flags().Duration("session-ttl", 0, "Expire idle sessions (Redis only)")
	serveCmd.Flags().String("session-dir", "", "Store sessions as files in this directory (ignored with --redis)")
	serveCmd.Flags().StringSlice("mask", nil, "Patterns of state fields never written to the session store")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the manifest for new sessions on change")
	serveCmd.Flags().Bool("json-logs", true, "Write logs as JSON")
}

// sessionKey reads the base64 encoded session encryption key from the environment.
func sessionKey() ([]byte, error) {
	encoded := os.Getenv(sessionKeyEnv)
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sessionKeyEnv, err)
	}
	return key, nil
}
