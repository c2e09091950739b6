package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/partflow/partflow/clientcli"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	server      string
	bucket      string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "partflow-cli",
	Version: version,
	Short:   "Client for Partflow upload coordinators",
	Long: `Partflow CLI - Client for Partflow upload coordinator servers

Files are split into chunks and uploaded through the coordinator's
multipart API. Interrupted uploads can be resumed with --resume, and
files the server already holds complete instantly without sending data.

Commands:
  - upload:    Chunk and upload a local file
  - status:    Show which chunks of a session the server has received
  - abort:     Discard a session and its uploaded chunks
  - configure: Manage server profiles`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.partflow/config.yaml, env: PARTFLOW_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: PARTFLOW_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", "", "server URL (default: http://localhost:5710, env: PARTFLOW_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&bucket, "bucket", "b", "", "target bucket (env: PARTFLOW_BUCKET)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath resolves the config file path from flag, env, or default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := clientcli.ConfigPathFromEnv(); path != "" {
		return path
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from profile, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	// 1. Load from the selected profile in the config file
	configPath := getConfigPath()
	if configPath != "" {
		configFile, err := clientcli.LoadConfigFile(configPath)
		if err != nil {
			// Only error if user explicitly specified a config file
			if cfgFile != "" {
				return nil, err
			}
		} else {
			profile, err := selectProfile(configFile)
			if err != nil {
				return nil, err
			}
			if profile != nil {
				configs = append(configs, clientcli.ConfigFromProfile(profile))
			}
		}
	}

	// 2. Load from environment variables
	configs = append(configs, clientcli.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &clientcli.Config{
		Endpoint: server,
		Bucket:   bucket,
	})

	return clientcli.MergeConfig(configs...), nil
}

// selectProfile picks the profile named by flag or env, falling back to the
// config file's default. A missing default is not an error; a missing named
// profile is.
func selectProfile(configFile *clientcli.ConfigFile) (*clientcli.Profile, error) {
	name := profileName
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}
	if name != "" {
		return configFile.GetProfile(name)
	}

	profile, err := configFile.GetDefaultProfile()
	if err != nil {
		if errors.Is(err, clientcli.ErrNoProfiles) || errors.Is(err, clientcli.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}
