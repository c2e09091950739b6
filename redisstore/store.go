// Package redisstore persists partflow upload sessions, chunk records, and
// the content dedup index in Redis. All records carry TTLs so abandoned
// uploads age out of the metadata store on their own.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/partflow/partflow"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "oss:multipart:upload:"
	chunksKeyPrefix  = "oss:multipart:chunks:"
	lockKeyPrefix    = "oss:multipart:lock:"
	dedupKeyPrefix   = "oss:file:md5:"
)

// sessionRecord is the hash layout of a session in Redis.
type sessionRecord struct {
	UploadID    string `redis:"upload_id"`
	BucketName  string `redis:"bucket_name"`
	ObjectName  string `redis:"object_name"`
	FileSize    int64  `redis:"file_size"`
	ChunkSize   int64  `redis:"chunk_size"`
	TotalChunks int    `redis:"total_chunks"`
	Fingerprint string `redis:"fingerprint"`
	ContentType string `redis:"content_type"`
	CreatedAt   int64  `redis:"created_at"` // unix seconds
}

// SessionRepo implements partflow.SessionRepo on Redis hashes. Chunk
// records live in a separate hash keyed by chunk number, so recording a
// chunk is a single-field atomic write.
type SessionRepo struct {
	client redis.UniversalClient
}

// NewSessionRepo creates a SessionRepo.
func NewSessionRepo(client redis.UniversalClient) (*SessionRepo, error) {
	if client == nil {
		return nil, errors.New("redis session repo: client is required")
	}
	return &SessionRepo{client: client}, nil
}

func sessionKey(uploadID string) string { return sessionKeyPrefix + uploadID }
func chunksKey(uploadID string) string  { return chunksKeyPrefix + uploadID }
func lockKey(uploadID string) string    { return lockKeyPrefix + uploadID }

// Put stores the session hash and arms its expiry.
func (r *SessionRepo) Put(ctx context.Context, session partflow.UploadSession, ttl time.Duration) error {
	rec := sessionRecord{
		UploadID:    session.UploadID,
		BucketName:  session.BucketName,
		ObjectName:  session.ObjectName,
		FileSize:    session.FileSize,
		ChunkSize:   session.ChunkSize,
		TotalChunks: session.TotalChunks,
		Fingerprint: session.Fingerprint,
		ContentType: session.ContentType,
		CreatedAt:   session.CreatedAt.Unix(),
	}

	key := sessionKey(session.UploadID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, rec)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Get loads a session. Expired or unknown ids surface as
// partflow.ErrSessionNotFound.
func (r *SessionRepo) Get(ctx context.Context, uploadID string) (partflow.UploadSession, error) {
	cmd := r.client.HGetAll(ctx, sessionKey(uploadID))
	if err := cmd.Err(); err != nil {
		return partflow.UploadSession{}, fmt.Errorf("get session: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return partflow.UploadSession{}, partflow.ErrSessionNotFound
	}

	var rec sessionRecord
	if err := cmd.Scan(&rec); err != nil {
		return partflow.UploadSession{}, fmt.Errorf("get session: decode: %w", err)
	}

	return partflow.UploadSession{
		UploadID:    rec.UploadID,
		BucketName:  rec.BucketName,
		ObjectName:  rec.ObjectName,
		FileSize:    rec.FileSize,
		ChunkSize:   rec.ChunkSize,
		TotalChunks: rec.TotalChunks,
		Fingerprint: rec.Fingerprint,
		ContentType: rec.ContentType,
		CreatedAt:   time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}

// Delete removes the session and its chunk records.
func (r *SessionRepo) Delete(ctx context.Context, uploadID string) error {
	if err := r.client.Del(ctx, sessionKey(uploadID), chunksKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RecordChunk stores the chunk's checksum under its number and refreshes
// the expiry of both the chunk hash and the session, so an actively
// progressing upload never ages out mid-flight.
func (r *SessionRepo) RecordChunk(ctx context.Context, uploadID string, chunkNumber int, checksum string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, chunksKey(uploadID), strconv.Itoa(chunkNumber), checksum)
	pipe.Expire(ctx, chunksKey(uploadID), ttl)
	pipe.Expire(ctx, sessionKey(uploadID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record chunk %d: %w", chunkNumber, err)
	}
	return nil
}

// Chunks returns the recorded chunk numbers with their checksums. An
// unknown uploadId yields an empty map.
func (r *SessionRepo) Chunks(ctx context.Context, uploadID string) (map[int]string, error) {
	fields, err := r.client.HGetAll(ctx, chunksKey(uploadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	chunks := make(map[int]string, len(fields))
	for field, checksum := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("list chunks: bad chunk field %q: %w", field, err)
		}
		chunks[n] = checksum
	}
	return chunks, nil
}

// AcquireLock takes the session's advisory lock with SETNX semantics.
func (r *SessionRepo) AcquireLock(ctx context.Context, uploadID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(uploadID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock drops the advisory lock.
func (r *SessionRepo) ReleaseLock(ctx context.Context, uploadID string) error {
	if err := r.client.Del(ctx, lockKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// DedupIndex implements partflow.DedupIndex on plain Redis strings.
type DedupIndex struct {
	client redis.UniversalClient
}

// NewDedupIndex creates a DedupIndex.
func NewDedupIndex(client redis.UniversalClient) (*DedupIndex, error) {
	if client == nil {
		return nil, errors.New("redis dedup index: client is required")
	}
	return &DedupIndex{client: client}, nil
}

func dedupKey(bucket, fingerprint string) string {
	return dedupKeyPrefix + bucket + ":" + fingerprint
}

// Lookup returns the object name recorded for the fingerprint, or "" when
// no mapping exists.
func (d *DedupIndex) Lookup(ctx context.Context, bucket, fingerprint string) (string, error) {
	name, err := d.client.Get(ctx, dedupKey(bucket, fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dedup lookup: %w", err)
	}
	return name, nil
}

// Store records fingerprint -> objectName with the given TTL.
func (d *DedupIndex) Store(ctx context.Context, bucket, fingerprint, objectName string, ttl time.Duration) error {
	if err := d.client.Set(ctx, dedupKey(bucket, fingerprint), objectName, ttl).Err(); err != nil {
		return fmt.Errorf("dedup store: %w", err)
	}
	return nil
}
