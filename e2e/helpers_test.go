package e2e_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	miniocontainer "github.com/testcontainers/testcontainers-go/modules/minio"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/partflow/partflow"
	partflowhttp "github.com/partflow/partflow/http"
	"github.com/partflow/partflow/miniostore"
	"github.com/partflow/partflow/redisstore"
)

var (
	backendsOnce sync.Once
	backendsErr  error

	redisOptions  *goredis.Options
	minioEndpoint string
	minioUser     string
	minioPassword string
)

// startSharedBackends starts one Redis and one MinIO container shared by all
// tests in the package. Tests are skipped when no container runtime is
// available.
func startSharedBackends(t *testing.T) {
	t.Helper()

	backendsOnce.Do(func() {
		ctx := context.Background()

		redisC, err := rediscontainer.Run(ctx, "redis:7-alpine")
		if err != nil {
			backendsErr = err
			return
		}

		redisURL, err := redisC.ConnectionString(ctx)
		if err != nil {
			backendsErr = err
			return
		}
		redisOptions, err = goredis.ParseURL(redisURL)
		if err != nil {
			backendsErr = err
			return
		}

		minioC, err := miniocontainer.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
		if err != nil {
			backendsErr = err
			return
		}

		minioEndpoint, err = minioC.ConnectionString(ctx)
		if err != nil {
			backendsErr = err
			return
		}
		minioUser = minioC.Username
		minioPassword = minioC.Password
	})

	if backendsErr != nil {
		t.Skipf("container runtime unavailable: %v", backendsErr)
	}
}

// coordinator bundles a running upload coordinator with handles to its
// backends for state verification.
type coordinator struct {
	BaseURL  string
	Service  *partflow.UploadService
	Sessions *redisstore.SessionRepo
	Objects  *miniosdk.Client
}

// newCoordinator wires a coordinator against the shared containers and serves
// its HTTP API from an httptest server.
func newCoordinator(t *testing.T) *coordinator {
	t.Helper()
	startSharedBackends(t)

	minioClient, err := miniosdk.New(minioEndpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(minioUser, minioPassword, ""),
		Secure: false,
	})
	require.NoError(t, err, "create minio client")

	store, err := miniostore.New(minioClient, "")
	require.NoError(t, err, "create object store")

	redisClient := goredis.NewClient(redisOptions)
	t.Cleanup(func() { _ = redisClient.Close() })

	sessions, err := redisstore.NewSessionRepo(redisClient)
	require.NoError(t, err, "create session repo")

	dedup, err := redisstore.NewDedupIndex(redisClient)
	require.NoError(t, err, "create dedup index")

	svc, err := partflow.NewUploadService(store, sessions, dedup, partflow.DefaultLimits())
	require.NoError(t, err, "create upload service")

	handler := partflowhttp.NewHandler(&partflowhttp.HandlerConfig{}, svc)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	return &coordinator{
		BaseURL:  srv.URL,
		Service:  svc,
		Sessions: sessions,
		Objects:  minioClient,
	}
}

// randomBucket returns a unique bucket name so tests do not share dedup or
// object state.
func randomBucket(t *testing.T) string {
	t.Helper()

	var b [8]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err, "random bucket name")

	return "e2e-" + hex.EncodeToString(b[:])
}

// writeTestFile writes size bytes of pseudo-random content to a temp file and
// returns its path together with the content.
func writeTestFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err, "generate test data")

	path := filepath.Join(t.TempDir(), name)
	err = os.WriteFile(path, data, 0o600)
	require.NoError(t, err, "write test file")

	return path, data
}

// readStoredObject fetches the full content of an object from MinIO.
func readStoredObject(t *testing.T, client *miniosdk.Client, bucket, object string) []byte {
	t.Helper()

	obj, err := client.GetObject(context.Background(), bucket, object, miniosdk.GetObjectOptions{})
	require.NoError(t, err, "get object")
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	require.NoError(t, err, "read object")

	return data
}

// listStoredObjects lists object names under a prefix in MinIO.
func listStoredObjects(t *testing.T, client *miniosdk.Client, bucket, prefix string) []string {
	t.Helper()

	var names []string
	for info := range client.ListObjects(context.Background(), bucket, miniosdk.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		require.NoError(t, info.Err, "list objects")
		names = append(names, info.Key)
	}
	return names
}
