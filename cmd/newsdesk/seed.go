package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsdesk/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and the default stages, prompts, providers and models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.EnsureSchema(ctx); err != nil {
			return err
		}

		report, err := a.store.Seed(ctx, storage.DefaultSeedData())
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stages created:         %d\n", report.Stages)
		fmt.Fprintf(out, "system prompts created: %d\n", report.SystemPrompts)
		fmt.Fprintf(out, "providers created:      %d\n", report.Providers)
		fmt.Fprintf(out, "models created:         %d\n", report.Models)
		fmt.Fprintf(out, "already present:        %d\n", report.Skipped)
		return nil
	},
}
