// Package config provides configuration loading and validation for partflow.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PARTFLOW_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with PARTFLOW_ prefix:
//   - server.port → PARTFLOW_SERVER_PORT
//   - storage.endpoint → PARTFLOW_STORAGE_ENDPOINT
//   - meta.addr → PARTFLOW_META_ADDR
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: HTTP listen port
//   - Storage: S3-compatible endpoint, credentials, TLS, and media URL
//   - Meta: Redis address, password, and database
//   - Multipart: chunk size/count limits and TTLs (zero uses service defaults)
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level and format
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Storage endpoint and Redis address are required
//   - Log level must be debug, info, warn, or error; format text or json
package config
