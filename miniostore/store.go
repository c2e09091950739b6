// Package miniostore provides an object storage backend for partflow on
// top of a MinIO (or any S3-compatible) server. It relies on the server's
// multi-object delete and server-side compose, so completing an upload
// never streams chunk bytes back through the coordinator.
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/partflow/partflow"
)

// Store implements partflow.ObjectStore backed by a MinIO client.
type Store struct {
	client   *minio.Client
	mediaURL string
}

// New creates a Store. mediaURL is the public base URL downloads are served
// from (a CDN or the MinIO endpoint itself); when empty, the client's
// endpoint URL is used.
func New(client *minio.Client, mediaURL string) (*Store, error) {
	if client == nil {
		return nil, errors.New("minio store: client is required")
	}
	if mediaURL == "" {
		mediaURL = client.EndpointURL().String()
	}
	return &Store{
		client:   client,
		mediaURL: strings.TrimRight(mediaURL, "/"),
	}, nil
}

// BucketExists reports whether the bucket exists.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("bucket exists: %w", err)
	}
	return exists, nil
}

// MakeBucket creates the bucket. Racing creators are tolerated: if the
// bucket exists by the time the call lands, that is success.
func (s *Store) MakeBucket(ctx context.Context, bucket string) error {
	err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return fmt.Errorf("make bucket: %w", err)
}

// PutObject stores content under bucket/object and returns the stored size
// and the server's ETag as checksum.
func (s *Store) PutObject(ctx context.Context, bucket, object string, content io.Reader, size int64) (partflow.ObjectStat, error) {
	info, err := s.client.PutObject(ctx, bucket, object, content, size, minio.PutObjectOptions{})
	if err != nil {
		return partflow.ObjectStat{}, fmt.Errorf("put object: %w", err)
	}
	return partflow.ObjectStat{Size: info.Size, Checksum: info.ETag}, nil
}

// ComposeObject concatenates the source objects, in order, into
// bucket/object using server-side copy and returns the resulting ETag.
func (s *Store) ComposeObject(ctx context.Context, bucket, object string, sources []string) (string, error) {
	if len(sources) == 0 {
		return "", errors.New("compose object: no sources")
	}

	srcs := make([]minio.CopySrcOptions, 0, len(sources))
	for _, src := range sources {
		srcs = append(srcs, minio.CopySrcOptions{Bucket: bucket, Object: src})
	}

	info, err := s.client.ComposeObject(ctx, minio.CopyDestOptions{Bucket: bucket, Object: object}, srcs...)
	if err != nil {
		return "", fmt.Errorf("compose object: %w", err)
	}
	return info.ETag, nil
}

// StatObject returns size and ETag of an object.
func (s *Store) StatObject(ctx context.Context, bucket, object string) (partflow.ObjectStat, error) {
	info, err := s.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return partflow.ObjectStat{}, fmt.Errorf("stat object: %w", err)
	}
	return partflow.ObjectStat{Size: info.Size, Checksum: info.ETag}, nil
}

// RemoveObjects deletes the named objects with the server's batched delete,
// returning one RemoveError per object that could not be deleted.
func (s *Store) RemoveObjects(ctx context.Context, bucket string, objects []string) []partflow.RemoveError {
	if len(objects) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, o := range objects {
		objectsCh <- minio.ObjectInfo{Key: o}
	}
	close(objectsCh)

	var failed []partflow.RemoveError
	for rmErr := range s.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		failed = append(failed, partflow.RemoveError{ObjectName: rmErr.ObjectName, Err: rmErr.Err})
	}
	return failed
}

// ListObjects returns the names of all objects under prefix.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		names = append(names, info.Key)
	}
	return names, nil
}

// PresignedPut issues a time-limited URL authorizing a single PUT of
// bucket/object without server credentials.
func (s *Store) PresignedPut(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, bucket, object, expiry)
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return u.String(), nil
}

// PublicURL returns the public download URL for an object.
func (s *Store) PublicURL(bucket, object string) string {
	return s.mediaURL + "/" + bucket + "/" + object
}
