package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/partflow/partflow/clientcli"
)

var (
	uploadObjectName  string
	uploadChunkSize   int64
	uploadContentType string
	uploadResumeID    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Chunk and upload a file to the server",
	Long: `Chunk and upload a file to the server.

The file is split into fixed-size chunks and sent through the multipart
API. If the server already holds a file with the same content
fingerprint, the upload completes instantly without sending any data.

Examples:
  partflow-cli upload ./video.mp4
  partflow-cli upload -b media --object videos/video.mp4 ./video.mp4
  partflow-cli upload --chunk-size 8388608 ./backup.tar
  partflow-cli upload --resume 0af1c94be4d8437d9f52a3f1c0d98a11 ./video.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadObjectName, "object", "o", "", "object name on the server (default: file basename)")
	uploadCmd.Flags().Int64Var(&uploadChunkSize, "chunk-size", 0, "chunk size in bytes (default: server minimum)")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringVar(&uploadResumeID, "resume", "", "resume an interrupted session by upload ID")
}

func runUpload(_ *cobra.Command, args []string) error {
	localPath := args[0]

	client, err := getClient()
	if err != nil {
		return err
	}

	opts := clientcli.UploadOptions{
		LocalPath:   localPath,
		ObjectName:  uploadObjectName,
		ChunkSize:   uploadChunkSize,
		ContentType: uploadContentType,
		ResumeID:    uploadResumeID,
	}

	result, err := client.Upload(context.Background(), opts)
	if err != nil {
		formatter := getFormatter()
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return getFormatter().FormatUpload(os.Stdout, result)
}
