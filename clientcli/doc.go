// Package clientcli provides a client library for interacting with Partflow upload coordinators.
//
// It splits local files into chunks, uploads them through the coordinator's
// multipart API, and supports resuming interrupted sessions and instant
// uploads backed by content fingerprints. The package includes profile-based
// configuration for managing connections to multiple servers.
//
// # Basic Usage
//
// Create a client and upload a file:
//
//	cfg := &clientcli.Config{
//		Endpoint: "http://localhost:5710",
//		Bucket:   "media",
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath:  "./video.mp4",
//		ObjectName: "videos/video.mp4",
//	})
//
// When the server already holds an object with the same content fingerprint,
// Upload returns immediately with InstantUpload set and no chunks are sent.
//
// # Resuming
//
// Pass the upload ID of an interrupted session to skip chunks the server
// already received:
//
//	result, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./video.mp4",
//		ResumeID:  "0af1c94be4d8437d9f52a3f1c0d98a11",
//	})
//
// # Profile Configuration
//
// Use profiles to manage multiple server configurations:
//
//	configFile, err := clientcli.LoadConfigFile("~/.partflow/config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := clientcli.ConfigFromProfile(profile)
//	client, err := clientcli.New(cfg)
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, result)
package clientcli
