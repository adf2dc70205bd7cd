package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yogastudio/internal/config"
	"github.com/yogastudio/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "yoga-api",
	Short: "Yoga studio booking API",
	Long: `Yoga studio booking API: JWT login, teachers, class sessions and
participation, with a websocket feed of roster changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetPrefix("api")
		cfg = config.Load()
		if v, _ := cmd.Flags().GetString("db-url"); v != "" {
			cfg.Database.URL = v
		}
		if v, _ := cmd.Flags().GetString("server-addr"); v != "" {
			cfg.ServerAddr = v
		}
		logger.SetLevel(cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
	// Without a subcommand the API is served.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.Flags().Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
