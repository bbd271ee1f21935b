package main

import (
	"context"
	"os"

	runbook "github.com/runbookhq/core"
	"github.com/runbookhq/core/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "runbook",
	Short: "Runbook serves a sandboxed code runner with a durable function catalog",
	Long: `Runbook executes code inside a bounded sandbox with context-specific
helper bindings, and stores reusable functions in a quota-bound catalog.
The tool surface is served over stdio or HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		flags := cmd.Flags()
		if flags.Changed("transport") {
			cfg.Transport, _ = flags.GetString("transport")
		}
		if flags.Changed("port") {
			cfg.Port, _ = flags.GetString("port")
		}
		if flags.Changed("data-store") {
			cfg.DataStore, _ = flags.GetString("data-store")
		}
		if flags.Changed("database-url") {
			cfg.DatabaseURL, _ = flags.GetString("database-url")
		}
		if flags.Changed("storage-path") {
			cfg.StoragePath, _ = flags.GetString("storage-path")
		}
		if flags.Changed("max-functions") {
			cfg.MaxFunctions, _ = flags.GetInt("max-functions")
		}
		if flags.Changed("exec-timeout") {
			cfg.ExecTimeoutSeconds, _ = flags.GetInt("exec-timeout")
		}
		if flags.Changed("aws-region") {
			cfg.AWSRegion, _ = flags.GetString("aws-region")
		}
		if flags.Changed("aws-profile") {
			cfg.AWSProfile, _ = flags.GetString("aws-profile")
		}
		if flags.Changed("enable-execution") {
			cfg.EnableExecution, _ = flags.GetBool("enable-execution")
		}
		if flags.Changed("enable-function-store") {
			cfg.EnableFunctionStore, _ = flags.GetBool("enable-function-store")
		}

		srv, err := runbook.New(cfg)
		if err != nil {
			return err
		}

		return srv.Start(context.Background())
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()

	flags.String("transport", config.TransportStdio, "tool transport: stdio or http")
	flags.String("port", "8099", "web server port when transport is http")
	flags.String("data-store", "sqlite", "data store implementation: memory, sqlite or postgresql")
	flags.String("database-url", "", "PostgreSQL connection string")
	flags.String("storage-path", "data/functions.db", "SQLite database file")
	flags.Int("max-functions", 20, "maximum number of stored functions")
	flags.Int("exec-timeout", 300, "execution timeout in seconds")
	flags.String("aws-region", "us-east-1", "default region for the helper bindings")
	flags.String("aws-profile", "", "shared-credentials profile for the helper bindings")
	flags.Bool("enable-execution", true, "serve the code execution tools")
	flags.Bool("enable-function-store", true, "serve the function catalog tools")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
