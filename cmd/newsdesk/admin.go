package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsdesk/internal/storage"
)

var (
	assignStage    int64
	assignModel    int64
	assignFallback int64
	assignPriority int
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Bind a stage to a model with an optional fallback",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.store.Stages.GetByID(ctx, assignStage); err != nil {
			return fmt.Errorf("stage %d: %w", assignStage, err)
		}
		if _, err := a.store.Models.GetByID(ctx, assignModel); err != nil {
			return fmt.Errorf("model %d: %w", assignModel, err)
		}

		var fallback *int64
		if assignFallback > 0 {
			if _, err := a.store.Models.GetByID(ctx, assignFallback); err != nil {
				return fmt.Errorf("fallback model %d: %w", assignFallback, err)
			}
			fallback = &assignFallback
		}

		assignment, err := a.store.Assignments.Activate(ctx, assignStage, assignModel, fallback, assignPriority)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidFallback) {
				return fmt.Errorf("fallback model must differ from the primary model")
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "assignment %d active: stage %d -> model %d\n", assignment.ID, assignment.StageID, assignment.ModelID)
		return nil
	},
}

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage AI providers",
}

var providerName string

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers and their models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.Providers.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tMODEL ID\tMODEL\tACTIVE\tKEY")
		for _, p := range list {
			hasKey := "no"
			if p.Credential() != "" {
				hasKey = "yes"
			}
			ms, err := a.store.Models.ListByProvider(ctx, p.ID)
			if err != nil {
				return err
			}
			if len(ms) == 0 {
				fmt.Fprintf(w, "%d\t%s\t-\t-\t%t\t%s\n", p.ID, p.Name, p.IsActive, hasKey)
			}
			for _, m := range ms {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%t\t%s\n", p.ID, p.Name, m.ID, m.APIIdentifier, p.IsActive && m.IsActive, hasKey)
			}
		}
		return w.Flush()
	},
}

var providerSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the API key of a provider (read from PROVIDER_API_KEY)",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := os.Getenv("PROVIDER_API_KEY")
		if key == "" {
			return fmt.Errorf("PROVIDER_API_KEY is not set")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Providers.GetByName(ctx, providerName)
		if err != nil {
			return fmt.Errorf("provider %s: %w", providerName, err)
		}
		if err := a.store.Providers.SetAPIKey(ctx, p.ID, key); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "API key of %s updated\n", p.Name)
		return nil
	},
}

var providerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the stored credential of a provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Providers.GetByName(ctx, providerName)
		if err != nil {
			return fmt.Errorf("provider %s: %w", providerName, err)
		}

		adapter, err := a.factory.CreateFromStored(p)
		if err != nil {
			return err
		}
		if ok, msg := adapter.ValidateConfig(); !ok {
			return fmt.Errorf("%s", msg)
		}

		ok, msg := adapter.TestConnection(ctx)
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		if !ok {
			return fmt.Errorf("connection test failed")
		}
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage stage prompts",
}

var (
	promptStage       int64
	promptFile        string
	promptDescription string
	promptUser        int64
)

var promptSetSystemCmd = &cobra.Command{
	Use:   "set-system",
	Short: "Replace the system prompt of a stage; user copies are not changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, promptFile)
		if err != nil {
			return err
		}
		if text == "" {
			return fmt.Errorf("prompt text is empty")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var description *string
		if cmd.Flags().Changed("description") {
			description = &promptDescription
		}

		sp, err := a.prompts.UpdateSystemPrompt(ctx, promptStage, text, description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "system prompt %d of stage %d updated\n", sp.ID, sp.StageID)
		return nil
	},
}

var promptInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a user's prompt copies for all active stages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.prompts.InitializeUserPrompts(ctx, promptUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d has prompts for %d stages\n", promptUser, n)
		return nil
	},
}

func init() {
	assignCmd.Flags().Int64Var(&assignStage, "stage", 0, "stage ID")
	assignCmd.Flags().Int64Var(&assignModel, "model", 0, "primary model ID")
	assignCmd.Flags().Int64Var(&assignFallback, "fallback", 0, "fallback model ID (0 for none)")
	assignCmd.Flags().IntVar(&assignPriority, "priority", 0, "assignment priority")
	_ = assignCmd.MarkFlagRequired("stage")
	_ = assignCmd.MarkFlagRequired("model")

	providerCmd.PersistentFlags().StringVar(&providerName, "name", "", "provider name (openai, google, anthropic)")
	providerCmd.AddCommand(providerListCmd, providerSetKeyCmd, providerTestCmd)

	promptSetSystemCmd.Flags().Int64Var(&promptStage, "stage", 0, "stage ID")
	promptSetSystemCmd.Flags().StringVar(&promptFile, "file", "", "read prompt text from file instead of stdin")
	promptSetSystemCmd.Flags().StringVar(&promptDescription, "description", "", "prompt description")
	_ = promptSetSystemCmd.MarkFlagRequired("stage")

	promptInitCmd.Flags().Int64Var(&promptUser, "user", 0, "user ID")
	_ = promptInitCmd.MarkFlagRequired("user")

	promptCmd.AddCommand(promptSetSystemCmd, promptInitCmd)
}
