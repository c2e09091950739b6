package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <upload-id>",
	Short: "Show which chunks the server has received",
	Long: `Show which chunks of an upload session the server has received.

Useful before resuming: chunks listed here are skipped by
'upload --resume'.

Examples:
  partflow-cli status 0af1c94be4d8437d9f52a3f1c0d98a11`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(_ *cobra.Command, args []string) error {
	uploadID := args[0]

	client, err := getClient()
	if err != nil {
		return err
	}

	chunks, err := client.Status(context.Background(), uploadID)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return getFormatter().FormatChunks(os.Stdout, uploadID, chunks)
}
