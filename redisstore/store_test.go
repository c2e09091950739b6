package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/partflow/partflow"
	"github.com/partflow/partflow/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*redisstore.SessionRepo, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo, err := redisstore.NewSessionRepo(client)
	require.NoError(t, err)
	return repo, srv
}

func testSession(uploadID string) partflow.UploadSession {
	return partflow.UploadSession{
		UploadID:    uploadID,
		BucketName:  "media",
		ObjectName:  "videos/intro.mp4",
		FileSize:    12_000_000,
		ChunkSize:   5_000_000,
		TotalChunks: 3,
		Fingerprint: "d41d8cd98f00b204e9800998ecf8427e",
		ContentType: "video/mp4",
		CreatedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestSessionRepo_PutGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	t.Run("round trips every field", func(t *testing.T) {
		want := testSession("u1")
		require.NoError(t, repo.Put(ctx, want, time.Hour))

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, partflow.ErrSessionNotFound)
	})

	t.Run("put replaces a previous record", func(t *testing.T) {
		first := testSession("u2")
		require.NoError(t, repo.Put(ctx, first, time.Hour))

		second := first
		second.ObjectName = "videos/other.mp4"
		require.NoError(t, repo.Put(ctx, second, time.Hour))

		got, err := repo.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "videos/other.mp4", got.ObjectName)
	})
}

func TestSessionRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	repo, srv := newTestRepo(t)

	require.NoError(t, repo.Put(ctx, testSession("u1"), time.Hour))

	srv.FastForward(time.Hour + time.Second)

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, partflow.ErrSessionNotFound)
}

func TestSessionRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Put(ctx, testSession("u1"), time.Hour))
	require.NoError(t, repo.RecordChunk(ctx, "u1", 1, "etag-1", time.Hour))

	require.NoError(t, repo.Delete(ctx, "u1"))

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, partflow.ErrSessionNotFound)
	chunks, err := repo.Chunks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, chunks, "chunk records go with the session")

	assert.NoError(t, repo.Delete(ctx, "u1"), "deleting twice is fine")
}

func TestSessionRepo_Chunks(t *testing.T) {
	ctx := context.Background()
	repo, srv := newTestRepo(t)

	t.Run("unknown session yields empty map", func(t *testing.T) {
		chunks, err := repo.Chunks(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("records overwrite per chunk number", func(t *testing.T) {
		require.NoError(t, repo.RecordChunk(ctx, "u1", 2, "etag-a", time.Hour))
		require.NoError(t, repo.RecordChunk(ctx, "u1", 1, "etag-b", time.Hour))
		require.NoError(t, repo.RecordChunk(ctx, "u1", 2, "etag-c", time.Hour))

		chunks, err := repo.Chunks(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, map[int]string{1: "etag-b", 2: "etag-c"}, chunks)
	})

	t.Run("recording refreshes the session expiry", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, testSession("u3"), time.Hour))

		srv.FastForward(45 * time.Minute)
		require.NoError(t, repo.RecordChunk(ctx, "u3", 1, "etag-1", time.Hour))

		// Past the original deadline, inside the refreshed one.
		srv.FastForward(30 * time.Minute)
		_, err := repo.Get(ctx, "u3")
		assert.NoError(t, err)
	})
}

func TestSessionRepo_Lock(t *testing.T) {
	ctx := context.Background()
	repo, srv := newTestRepo(t)

	ok, err := repo.AcquireLock(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireLock(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder is refused")

	require.NoError(t, repo.ReleaseLock(ctx, "u1"))
	ok, err = repo.AcquireLock(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock is free after release")

	srv.FastForward(2 * time.Minute)
	ok, err = repo.AcquireLock(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock self-expires")

	assert.NoError(t, repo.ReleaseLock(ctx, "never-held"))
}

func TestDedupIndex(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	index, err := redisstore.NewDedupIndex(client)
	require.NoError(t, err)

	t.Run("miss returns empty name without error", func(t *testing.T) {
		name, err := index.Lookup(ctx, "media", "unknown-fp")
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("store then lookup", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "media", "fp-1", "a/first.bin", time.Hour))

		name, err := index.Lookup(ctx, "media", "fp-1")
		require.NoError(t, err)
		assert.Equal(t, "a/first.bin", name)
	})

	t.Run("scoped per bucket", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "media", "fp-2", "in-media.bin", time.Hour))

		name, err := index.Lookup(ctx, "backups", "fp-2")
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, index.Store(ctx, "media", "fp-3", "short-lived.bin", time.Minute))
		srv.FastForward(2 * time.Minute)

		name, err := index.Lookup(ctx, "media", "fp-3")
		require.NoError(t, err)
		assert.Empty(t, name)
	})
}

func TestNewConstructorsRejectNil(t *testing.T) {
	_, err := redisstore.NewSessionRepo(nil)
	assert.Error(t, err)
	_, err = redisstore.NewDedupIndex(nil)
	assert.Error(t, err)
}
