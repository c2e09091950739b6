package partflow

import (
	"fmt"
	"time"
)

// Default multipart limits. The chunk-size floor matches the smallest part
// the storage backend accepts for server-side compose.
const (
	DefaultMinChunkSize  = 5 * 1024 * 1024
	DefaultMaxChunkSize  = 5 * 1024 * 1024 * 1024
	DefaultMaxChunkCount = 10000

	DefaultPresignTTL = time.Hour
	DefaultSessionTTL = 24 * time.Hour
	DefaultDedupTTL   = 7 * 24 * time.Hour
)

// Limits holds the tunable bounds governing multipart uploads.
type Limits struct {
	MinChunkSize  int64
	MaxChunkSize  int64
	MaxChunkCount int
	PresignTTL    time.Duration
	SessionTTL    time.Duration
	DedupTTL      time.Duration
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		MinChunkSize:  DefaultMinChunkSize,
		MaxChunkSize:  DefaultMaxChunkSize,
		MaxChunkCount: DefaultMaxChunkCount,
		PresignTTL:    DefaultPresignTTL,
		SessionTTL:    DefaultSessionTTL,
		DedupTTL:      DefaultDedupTTL,
	}
}

// WithDefaults fills zero-valued fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MinChunkSize <= 0 {
		l.MinChunkSize = d.MinChunkSize
	}
	if l.MaxChunkSize <= 0 {
		l.MaxChunkSize = d.MaxChunkSize
	}
	if l.MaxChunkCount <= 0 {
		l.MaxChunkCount = d.MaxChunkCount
	}
	if l.PresignTTL <= 0 {
		l.PresignTTL = d.PresignTTL
	}
	if l.SessionTTL <= 0 {
		l.SessionTTL = d.SessionTTL
	}
	if l.DedupTTL <= 0 {
		l.DedupTTL = d.DedupTTL
	}
	return l
}

// Validate checks internal consistency of the limits.
func (l Limits) Validate() error {
	if l.MinChunkSize <= 0 {
		return fmt.Errorf("validate limits: min chunk size must be positive")
	}
	if l.MaxChunkSize < l.MinChunkSize {
		return fmt.Errorf("validate limits: max chunk size %d below min %d", l.MaxChunkSize, l.MinChunkSize)
	}
	if l.MaxChunkCount < 1 {
		return fmt.Errorf("validate limits: max chunk count must be at least 1")
	}
	return nil
}

// UploadSession is the coordinator's record of one in-progress multipart
// upload. It is created only by InitUpload and removed by CompleteUpload or
// AbortUpload; the session repository expires it after the session TTL if
// neither is called.
type UploadSession struct {
	UploadID    string    `json:"upload_id"`
	BucketName  string    `json:"bucket_name"`
	ObjectName  string    `json:"object_name"`
	FileSize    int64     `json:"file_size"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InitRequest carries the parameters for starting a multipart upload.
// ChunkSize is optional; zero selects the configured minimum. Fingerprint is
// an opaque, caller-computed content hash used only for deduplication.
type InitRequest struct {
	BucketName  string
	ObjectName  string
	FileSize    int64
	ChunkSize   int64
	Fingerprint string
	ContentType string
}

// InitResult is returned by InitUpload. When InstantUpload is set the
// content already existed: FileURL points at it and no session was created.
type InitResult struct {
	UploadID       string   `json:"upload_id,omitempty"`
	BucketName     string   `json:"bucket_name"`
	ObjectName     string   `json:"object_name"`
	TotalChunks    int      `json:"total_chunks,omitempty"`
	ChunkSize      int64    `json:"chunk_size,omitempty"`
	InstantUpload  bool     `json:"instant_upload"`
	FileURL        string   `json:"file_url,omitempty"`
	UploadURLs     []string `json:"upload_urls,omitempty"`
	UploadedChunks []int    `json:"uploaded_chunks"`
}

// ChunkResult reports one accepted chunk.
type ChunkResult struct {
	ChunkNumber int    `json:"chunk_number"`
	Checksum    string `json:"checksum"`
}

// CompleteResult describes the assembled object.
type CompleteResult struct {
	ObjectName string `json:"object_name"`
	FileURL    string `json:"file_url"`
	FileSize   int64  `json:"file_size"`
	Checksum   string `json:"checksum"`
}

// ObjectStat is the size/checksum pair reported by the storage backend.
type ObjectStat struct {
	Size     int64
	Checksum string
}

// RemoveError reports a single failed deletion from a batch remove.
type RemoveError struct {
	ObjectName string
	Err        error
}

// ChunkCount returns ceil(fileSize / chunkSize). Both arguments must be
// positive.
func ChunkCount(fileSize, chunkSize int64) int {
	return int((fileSize + chunkSize - 1) / chunkSize)
}
