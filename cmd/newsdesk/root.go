package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Run news text through configurable AI analysis stages",
	Long: `newsdesk sends news text through an ordered set of analysis stages.
Each stage is bound to an AI model with an optional fallback and uses a
per-user editable prompt.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			logging.SetLogLevel(logging.ParseLevel(level))
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with environment variables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(providerCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(keygenCmd)
}
