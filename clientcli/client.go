package clientcli

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/partflow/partflow"
	"github.com/zeebo/blake3"
)

// DefaultTimeout is the default HTTP client timeout. It has to cover the
// transfer of a full chunk, not just a round trip.
const DefaultTimeout = 5 * time.Minute

// Client performs resumable multipart uploads against a partflow server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Bucket:   cfg.Bucket,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Fingerprint computes the content fingerprint of a file, used by the
// coordinator for instant-upload deduplication.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Upload performs a resumable multipart upload of a single file.
//
// A fresh upload fingerprints the file, initializes a session, sends every
// chunk, and completes. When the coordinator recognizes the fingerprint the
// upload finishes instantly without sending any bytes.
//
// Setting opts.ResumeID resumes a previous session instead: chunks the
// coordinator already has are skipped. The chunk size must match the one
// used when the session was created.
//
// On a chunk or completion failure the returned error wraps the state
// needed to resume; the session stays valid until its TTL.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = c.config.Bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyBucket)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	fileSize := info.Size()

	if opts.ResumeID != "" {
		return c.resume(ctx, opts, file, fileSize)
	}

	objectName := opts.ObjectName
	if objectName == "" {
		objectName = filepath.Base(opts.LocalPath)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	fingerprint, err := Fingerprint(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	init, err := c.initUpload(ctx, initPayload{
		BucketName:  bucket,
		ObjectName:  objectName,
		FileSize:    fileSize,
		ChunkSize:   opts.ChunkSize,
		Fingerprint: fingerprint,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	if init.InstantUpload {
		return &UploadResult{
			ObjectName:    init.ObjectName,
			FileURL:       init.FileURL,
			Size:          fileSize,
			InstantUpload: true,
		}, nil
	}

	sent, err := c.sendChunks(ctx, init.UploadID, file, fileSize, init.ChunkSize, init.TotalChunks, nil)
	if err != nil {
		return nil, fmt.Errorf("upload %s (session %s): %w", objectName, init.UploadID, err)
	}

	done, err := c.completeUpload(ctx, init.UploadID)
	if err != nil {
		return nil, fmt.Errorf("complete %s (session %s): %w", objectName, init.UploadID, err)
	}

	return &UploadResult{
		UploadID:   init.UploadID,
		ObjectName: done.ObjectName,
		FileURL:    done.FileURL,
		Size:       done.FileSize,
		Checksum:   done.Checksum,
		ChunksSent: sent,
	}, nil
}

// resume picks up a previous session: it asks the coordinator which chunks
// arrived, sends the rest, and completes.
func (c *Client) resume(ctx context.Context, opts UploadOptions, file *os.File, fileSize int64) (*UploadResult, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = partflow.DefaultMinChunkSize
	}
	totalChunks := partflow.ChunkCount(fileSize, chunkSize)

	uploaded, err := c.Status(ctx, opts.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", opts.ResumeID, err)
	}
	skip := make(map[int]bool, len(uploaded))
	for _, n := range uploaded {
		skip[n] = true
	}

	sent, err := c.sendChunks(ctx, opts.ResumeID, file, fileSize, chunkSize, totalChunks, skip)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", opts.ResumeID, err)
	}

	done, err := c.completeUpload(ctx, opts.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: complete: %w", opts.ResumeID, err)
	}

	return &UploadResult{
		UploadID:      opts.ResumeID,
		ObjectName:    done.ObjectName,
		FileURL:       done.FileURL,
		Size:          done.FileSize,
		Checksum:      done.Checksum,
		ChunksSent:    sent,
		ChunksSkipped: len(uploaded),
	}, nil
}

// sendChunks streams the file's chunks through the coordinator, skipping
// the numbers in skip. Each chunk is an independent request; a failure
// leaves previously sent chunks in place.
func (c *Client) sendChunks(ctx context.Context, uploadID string, file *os.File, fileSize, chunkSize int64, totalChunks int, skip map[int]bool) (int, error) {
	sent := 0
	for n := 1; n <= totalChunks; n++ {
		if skip[n] {
			continue
		}

		offset := int64(n-1) * chunkSize
		length := min(chunkSize, fileSize-offset)
		section := io.NewSectionReader(file, offset, length)

		url := fmt.Sprintf("%s/api/multipart/%s/chunks/%d", c.config.Endpoint, uploadID, n)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, section)
		if err != nil {
			return sent, fmt.Errorf("create chunk request: %w", err)
		}
		req.ContentLength = length

		var result partflow.ChunkResult
		if err := c.do(req, &result); err != nil {
			return sent, fmt.Errorf("chunk %d: %w", n, err)
		}
		sent++
	}
	return sent, nil
}

// Status returns the chunk numbers the coordinator has already received
// for the session.
func (c *Client) Status(ctx context.Context, uploadID string) ([]int, error) {
	url := fmt.Sprintf("%s/api/multipart/%s/chunks", c.config.Endpoint, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp chunkListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.UploadedChunks, nil
}

// Abort cancels the session and discards its chunks.
func (c *Client) Abort(ctx context.Context, uploadID string) error {
	url := fmt.Sprintf("%s/api/multipart/%s/", c.config.Endpoint, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, nil)
}

type initPayload struct {
	BucketName  string `json:"bucket_name"`
	ObjectName  string `json:"object_name"`
	FileSize    int64  `json:"file_size"`
	ChunkSize   int64  `json:"chunk_size,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func (c *Client) initUpload(ctx context.Context, payload initPayload) (*partflow.InitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal init request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/api/multipart/init", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result partflow.InitResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) completeUpload(ctx context.Context, uploadID string) (*partflow.CompleteResult, error) {
	url := fmt.Sprintf("%s/api/multipart/%s/complete", c.config.Endpoint, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var result partflow.CompleteResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes the request and decodes the JSON response into out when it
// is non-nil. Non-2xx responses become APIErrors.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseServerError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts error message from server response.
func parseServerError(statusCode int, body []byte) error {
	return &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the upload session does not exist or
	// has expired (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrConflict is returned when the upload is incomplete or another
	// completion is running (409).
	ErrConflict = &APIError{StatusCode: http.StatusConflict}

	// ErrBadRequest is returned when the request was rejected as invalid (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}
)
