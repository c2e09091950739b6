package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var abortCmd = &cobra.Command{
	Use:   "abort <upload-id>",
	Short: "Discard an upload session",
	Long: `Discard an upload session and the chunks the server has received.

Aborting is idempotent: an already-finished or unknown session succeeds
without error.

Examples:
  partflow-cli abort 0af1c94be4d8437d9f52a3f1c0d98a11`,
	Args: cobra.ExactArgs(1),
	RunE: runAbort,
}

func runAbort(_ *cobra.Command, args []string) error {
	uploadID := args[0]

	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.Abort(context.Background(), uploadID); err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return getFormatter().FormatAbort(os.Stdout, uploadID)
}
