package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsdesk/internal/config"
	"newsdesk/internal/search"
)

var (
	searchCount     int
	searchFreshness string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run or test web searches",
}

var searchTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the configured search provider and API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newSearchClient(config.LoadSearch())

		ok, msg := client.TestConnection(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		if !ok {
			return fmt.Errorf("connection test failed")
		}
		return nil
	},
}

var searchQueryCmd = &cobra.Command{
	Use:     "query <text>",
	Short:   "Search recent news and print the response as JSON",
	Example: `  newsdesk search query --count 5 --freshness pd "central bank rates"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newSearchClient(config.LoadSearch())

		opts := search.Options{Count: searchCount, Freshness: searchFreshness}
		resp := client.Search(cmd.Context(), strings.Join(args, " "), opts)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		if !resp.Success {
			return fmt.Errorf("search failed")
		}
		return nil
	},
}

func init() {
	searchQueryCmd.Flags().IntVar(&searchCount, "count", 10, "number of results")
	searchQueryCmd.Flags().StringVar(&searchFreshness, "freshness", "pw", "pd, pw, pm or py")

	searchCmd.AddCommand(searchTestCmd)
	searchCmd.AddCommand(searchQueryCmd)
}
