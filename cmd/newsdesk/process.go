package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"newsdesk/internal/pipeline"
)

var (
	processUser   int64
	processStages string
	processFile   string
	processHTML   bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one pipeline and print the result as JSON",
	Example: `  newsdesk process --user 1 --stages 1,2,3 --file article.txt
  cat article.html | newsdesk process --html --stages 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stageIDs, err := parseStageList(processStages)
		if err != nil {
			return err
		}

		text, err := readInput(cmd, processFile)
		if err != nil {
			return err
		}
		if processHTML {
			text = pipeline.HTMLToText(text)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.processor.ProcessNews(ctx, processUser, text, stageIDs)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if !result.Success {
			return fmt.Errorf("pipeline finished with errors")
		}
		return nil
	},
}

func init() {
	processCmd.Flags().Int64Var(&processUser, "user", 1, "user whose prompts are used")
	processCmd.Flags().StringVar(&processStages, "stages", "", "comma separated stage IDs")
	processCmd.Flags().StringVar(&processFile, "file", "", "read news text from file instead of stdin")
	processCmd.Flags().BoolVar(&processHTML, "html", false, "input is HTML, reduce it to text first")
	_ = processCmd.MarkFlagRequired("stages")
}

// parseStageList parses "1, 2,3" into IDs
func parseStageList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stage ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
