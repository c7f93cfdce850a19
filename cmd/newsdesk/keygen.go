package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsdesk/internal/storage"
)

var keygenSize int

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a base64 key for ENCRYPTION_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := storage.GenerateKey(keygenSize)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	keygenCmd.Flags().IntVar(&keygenSize, "size", 32, "key size in bytes (16, 24 or 32)")
}
