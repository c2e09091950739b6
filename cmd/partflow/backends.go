package main

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"github.com/partflow/partflow"
	"github.com/partflow/partflow/config"
	"github.com/partflow/partflow/creds"
	"github.com/partflow/partflow/miniostore"
	"github.com/partflow/partflow/redisstore"
)

// buildService connects the storage and metadata backends and assembles
// the upload service from them. The returned closer releases the Redis
// connection.
func buildService(ctx context.Context, cfg *config.Config) (*partflow.UploadService, func(), error) {
	keys, err := creds.Resolve(cfg.Storage.Keys, cfg.Storage.KeysFile)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve storage credentials: %w", err)
	}

	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  keys.Static(),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}

	store, err := miniostore.New(client, cfg.Storage.MediaURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create object store: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Meta.Addr,
		Password: cfg.Meta.Password,
		DB:       cfg.Meta.DB,
	})
	closeRedis := func() { _ = rdb.Close() }

	if err := rdb.Ping(ctx).Err(); err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("ping metadata store: %w", err)
	}

	sessions, err := redisstore.NewSessionRepo(rdb)
	if err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("create session repo: %w", err)
	}
	dedup, err := redisstore.NewDedupIndex(rdb)
	if err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("create dedup index: %w", err)
	}

	service, err := partflow.NewUploadService(store, sessions, dedup, cfg.Multipart.Limits())
	if err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("create service: %w", err)
	}

	return service, closeRedis, nil
}
