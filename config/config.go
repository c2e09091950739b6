package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/partflow/partflow"
	"github.com/partflow/partflow/creds"
	partflowhttp "github.com/partflow/partflow/http"
)

type configKey struct{}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Storage   StorageConfig           `mapstructure:"storage"`
	Meta      MetaConfig              `mapstructure:"meta"`
	Multipart MultipartConfig         `mapstructure:"multipart"`
	CORS      partflowhttp.CORSConfig `mapstructure:"cors"`
	Log       LogConfig               `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// StorageConfig points at the S3-compatible backend.
type StorageConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required"`
	UseSSL   bool          `mapstructure:"use_ssl"`
	Keys     creds.KeyPair `mapstructure:"keys"`
	KeysFile string        `mapstructure:"keys_file"`
	MediaURL string        `mapstructure:"media_url"`
}

// MetaConfig points at the Redis metadata store.
type MetaConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// MultipartConfig carries the chunk layout limits. Zero values fall back
// to the service defaults.
type MultipartConfig struct {
	MinChunkSize  int64 `mapstructure:"min_chunk_size" validate:"min=0"`
	MaxChunkSize  int64 `mapstructure:"max_chunk_size" validate:"min=0"`
	MaxChunkCount int   `mapstructure:"max_chunk_count" validate:"min=0"`
	PresignTTL    int   `mapstructure:"presign_ttl" validate:"min=0"` // seconds
	SessionTTL    int   `mapstructure:"session_ttl" validate:"min=0"` // seconds
	DedupTTL      int   `mapstructure:"dedup_ttl" validate:"min=0"`   // seconds
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

var flagToViperKey = map[string]string{
	"port":             "server.port",
	"storage-endpoint": "storage.endpoint",
	"media-url":        "storage.media_url",
	"redis-addr":       "meta.addr",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5710)

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("meta.addr", "localhost:6379")
	v.SetDefault("meta.db", 0)

	v.SetDefault("multipart.min_chunk_size", 0)
	v.SetDefault("multipart.max_chunk_size", 0)
	v.SetDefault("multipart.max_chunk_count", 0)
	v.SetDefault("multipart.presign_ttl", 0)
	v.SetDefault("multipart.session_ttl", 0)
	v.SetDefault("multipart.dedup_ttl", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PARTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Limits converts the multipart section into service limits, leaving zero
// values for the service defaults to fill.
func (m MultipartConfig) Limits() partflow.Limits {
	seconds := func(s int) time.Duration { return time.Duration(s) * time.Second }
	return partflow.Limits{
		MinChunkSize:  m.MinChunkSize,
		MaxChunkSize:  m.MaxChunkSize,
		MaxChunkCount: m.MaxChunkCount,
		PresignTTL:    seconds(m.PresignTTL),
		SessionTTL:    seconds(m.SessionTTL),
		DedupTTL:      seconds(m.DedupTTL),
	}
}
