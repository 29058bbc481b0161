package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "debug-the-graduate",
		Short: "Realtime multiplayer trivia service",
		Long: "Runs trivia rooms a host paces and players join by code.\n" +
			"Clients connect over websockets at /ws/host and /ws/play.",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port the websocket server listens on (env PORT)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to the YAML service config (env CONFIG_PATH)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
