package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/partflow/partflow/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "partflow",
	Short:   "Resumable multipart upload coordinator",
	Long: `Partflow coordinates resumable multipart uploads into an
S3-compatible object store, with Redis-backed sessions, chunk tracking,
and content-fingerprint deduplication.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			files = append(files, path)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("storage-endpoint", "", "S3-compatible endpoint (default: localhost:9000, env: PARTFLOW_STORAGE_ENDPOINT)")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address (default: localhost:6379, env: PARTFLOW_META_ADDR)")
	rootCmd.PersistentFlags().String("media-url", "", "public base URL for stored objects (env: PARTFLOW_STORAGE_MEDIA_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
