package partflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore defines the storage backend primitives the coordinator
// consumes. Implementations wrap an object store offering server-side
// compose (concatenation of stored objects without re-streaming bytes
// through the caller).
//
// All methods accept a context for cancellation and timeout control.
type ObjectStore interface {
	// BucketExists reports whether the bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// MakeBucket creates the bucket.
	MakeBucket(ctx context.Context, bucket string) error

	// PutObject stores content under bucket/object, overwriting any
	// existing object, and returns the stored size and backend checksum.
	// size may be -1 when the length is unknown.
	PutObject(ctx context.Context, bucket, object string, content io.Reader, size int64) (ObjectStat, error)

	// ComposeObject concatenates the source objects, in the given order,
	// into bucket/object and returns the checksum of the result.
	ComposeObject(ctx context.Context, bucket, object string, sources []string) (string, error)

	// StatObject returns size and checksum of an object. Implementations
	// return ErrNotExist-style backend errors for missing objects; callers
	// that only need existence use ObjectExists on the service.
	StatObject(ctx context.Context, bucket, object string) (ObjectStat, error)

	// RemoveObjects deletes the named objects, returning one RemoveError
	// per object that could not be deleted. An empty result means all
	// deletions succeeded.
	RemoveObjects(ctx context.Context, bucket string, objects []string) []RemoveError

	// ListObjects returns the names of all objects under prefix.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)

	// PresignedPut issues a time-limited URL authorizing a single PUT of
	// bucket/object without backend credentials.
	PresignedPut(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)

	// PublicURL returns the public download URL for an object.
	PublicURL(bucket, object string) string
}

// SessionRepo persists upload sessions and their chunk records in a
// TTL-capable metadata store. Implementations must make RecordChunk a
// single-key atomic update so concurrent chunk uploads for one session
// never corrupt the record.
type SessionRepo interface {
	// Put stores the session, replacing any previous record, and arms the
	// expiry timer.
	Put(ctx context.Context, session UploadSession, ttl time.Duration) error

	// Get loads a session. Returns ErrSessionNotFound when the uploadId is
	// unknown or the record has expired.
	Get(ctx context.Context, uploadID string) (UploadSession, error)

	// Delete removes the session and its chunk records. Deleting an
	// unknown uploadId is not an error.
	Delete(ctx context.Context, uploadID string) error

	// RecordChunk stores (chunkNumber, checksum) for the session,
	// overwriting an existing record for the same number, and refreshes
	// the record's expiry.
	RecordChunk(ctx context.Context, uploadID string, chunkNumber int, checksum string, ttl time.Duration) error

	// Chunks returns the recorded chunk numbers with their checksums.
	// An unknown uploadId yields an empty map, not an error.
	Chunks(ctx context.Context, uploadID string) (map[int]string, error)

	// AcquireLock takes a short-lived advisory lock for the session,
	// returning false when another holder has it. The lock self-expires
	// after ttl.
	AcquireLock(ctx context.Context, uploadID string, ttl time.Duration) (bool, error)

	// ReleaseLock drops the advisory lock. Releasing a lock that already
	// expired is not an error.
	ReleaseLock(ctx context.Context, uploadID string) error
}

// DedupIndex maps (bucket, content fingerprint) to a finished object name.
// Entries expire on their own TTL, independent of any session.
type DedupIndex interface {
	// Lookup returns the object name recorded for the fingerprint, or ""
	// when no mapping exists.
	Lookup(ctx context.Context, bucket, fingerprint string) (string, error)

	// Store records fingerprint -> objectName with the given TTL.
	Store(ctx context.Context, bucket, fingerprint, objectName string, ttl time.Duration) error
}

// completeLockTTL bounds how long a crashed complete/abort can block the
// session before the advisory lock self-expires.
const completeLockTTL = time.Minute

// UploadService coordinates resumable multipart uploads: it issues upload
// sessions, tracks chunk arrival, and assembles the final object once all
// chunks are present.
type UploadService struct {
	store    ObjectStore
	sessions SessionRepo
	dedup    DedupIndex
	limits   Limits
}

// NewUploadService wires the coordinator to its backends. Zero-valued
// fields of limits fall back to the defaults.
func NewUploadService(store ObjectStore, sessions SessionRepo, dedup DedupIndex, limits Limits) (*UploadService, error) {
	if store == nil {
		return nil, errors.New("new upload service: object store is required")
	}
	if sessions == nil {
		return nil, errors.New("new upload service: session repo is required")
	}
	if dedup == nil {
		return nil, errors.New("new upload service: dedup index is required")
	}

	limits = limits.WithDefaults()
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("new upload service: %w", err)
	}

	return &UploadService{
		store:    store,
		sessions: sessions,
		dedup:    dedup,
		limits:   limits,
	}, nil
}

// Limits returns the effective limits the service runs with.
func (s *UploadService) Limits() Limits {
	return s.limits
}

// InitUpload starts a multipart upload.
//
// It ensures the target bucket exists (creating it if absent), and when a
// fingerprint is supplied consults the dedup index: if a mapping points at
// an object that still exists, an instant-upload result is returned and no
// session is created. Otherwise it computes the chunk layout, issues one
// presigned PUT URL per chunk, and persists the session with its TTL.
//
// Error types returned:
//   - ErrInvalidInput: malformed bucket/object name, non-positive file
//     size, or chunk size above the configured maximum
//   - ErrInvalidChunkConfig: the layout would exceed the maximum chunk count
//   - ErrStorageBackend: bucket check/creation or presigning failed
func (s *UploadService) InitUpload(ctx context.Context, req InitRequest) (InitResult, error) {
	if err := ctx.Err(); err != nil {
		return InitResult{}, fmt.Errorf("init upload: %w", err)
	}

	if !IsValidBucketName(req.BucketName) {
		return InitResult{}, fmt.Errorf("init upload: bucket %q: %w", req.BucketName, ErrInvalidInput)
	}
	if !IsValidObjectName(req.ObjectName) {
		return InitResult{}, fmt.Errorf("init upload: object %q: %w", req.ObjectName, ErrInvalidInput)
	}
	if req.FileSize <= 0 {
		return InitResult{}, fmt.Errorf("init upload: file size must be positive: %w", ErrInvalidInput)
	}
	if req.ChunkSize > s.limits.MaxChunkSize {
		return InitResult{}, fmt.Errorf("init upload: chunk size %d exceeds maximum %d: %w",
			req.ChunkSize, s.limits.MaxChunkSize, ErrInvalidInput)
	}

	if err := s.ensureBucket(ctx, req.BucketName); err != nil {
		return InitResult{}, fmt.Errorf("init upload: %w", err)
	}

	// Dedup is a pure optimization: a lookup failure must never fail the
	// init, it only costs redundant chunk work.
	if req.Fingerprint != "" {
		existing, err := s.dedup.Lookup(ctx, req.BucketName, req.Fingerprint)
		if err != nil {
			slog.Warn("dedup lookup failed", "bucket", req.BucketName, "err", err)
		} else if existing != "" && s.ObjectExists(ctx, req.BucketName, existing) {
			slog.Info("instant upload", "bucket", req.BucketName, "object", existing)
			return InitResult{
				BucketName:     req.BucketName,
				ObjectName:     existing,
				InstantUpload:  true,
				FileURL:        s.store.PublicURL(req.BucketName, existing),
				UploadedChunks: []int{},
			}, nil
		}
	}

	chunkSize := max(req.ChunkSize, s.limits.MinChunkSize)
	totalChunks := ChunkCount(req.FileSize, chunkSize)
	if totalChunks > s.limits.MaxChunkCount {
		return InitResult{}, fmt.Errorf("init upload: %d chunks exceeds maximum %d, increase chunk size: %w",
			totalChunks, s.limits.MaxChunkCount, ErrInvalidChunkConfig)
	}

	uploadID := newUploadID()

	uploadURLs := make([]string, 0, totalChunks)
	for n := 1; n <= totalChunks; n++ {
		url, err := s.store.PresignedPut(ctx, req.BucketName, ChunkObjectName(req.ObjectName, uploadID, n), s.limits.PresignTTL)
		if err != nil {
			return InitResult{}, storageErr("init upload: presign chunk", err)
		}
		uploadURLs = append(uploadURLs, url)
	}

	session := UploadSession{
		UploadID:    uploadID,
		BucketName:  req.BucketName,
		ObjectName:  req.ObjectName,
		FileSize:    req.FileSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		Fingerprint: req.Fingerprint,
		ContentType: req.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, session, s.limits.SessionTTL); err != nil {
		return InitResult{}, fmt.Errorf("init upload: persist session: %w", err)
	}

	slog.Info("multipart upload initialized",
		"upload_id", uploadID, "bucket", req.BucketName, "object", req.ObjectName, "total_chunks", totalChunks)

	return InitResult{
		UploadID:       uploadID,
		BucketName:     req.BucketName,
		ObjectName:     req.ObjectName,
		TotalChunks:    totalChunks,
		ChunkSize:      chunkSize,
		UploadURLs:     uploadURLs,
		UploadedChunks: []int{},
	}, nil
}

// UploadChunk stores one chunk as an independent temp object and records
// its arrival. Chunks may arrive in any order; re-uploading a chunk number
// is a clean overwrite. A failed chunk does not invalidate the session or
// other chunks; the caller retries just that number.
//
// Error types returned:
//   - ErrSessionNotFound: unknown or expired uploadId
//   - ErrInvalidInput: chunkNumber outside [1, totalChunks]
//   - ErrStorageBackend: the chunk write failed (retryable)
func (s *UploadService) UploadChunk(ctx context.Context, uploadID string, chunkNumber int, content io.Reader, size int64) (ChunkResult, error) {
	if err := ctx.Err(); err != nil {
		return ChunkResult{}, fmt.Errorf("upload chunk: %w", err)
	}

	session, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("upload chunk: %w", err)
	}

	if chunkNumber < 1 || chunkNumber > session.TotalChunks {
		return ChunkResult{}, fmt.Errorf("upload chunk: chunk number %d outside [1,%d]: %w",
			chunkNumber, session.TotalChunks, ErrInvalidInput)
	}

	chunkObject := ChunkObjectName(session.ObjectName, uploadID, chunkNumber)
	stat, err := s.store.PutObject(ctx, session.BucketName, chunkObject, content, size)
	if err != nil {
		return ChunkResult{}, storageErr(fmt.Sprintf("upload chunk %d", chunkNumber), err)
	}

	if err := s.sessions.RecordChunk(ctx, uploadID, chunkNumber, stat.Checksum, s.limits.SessionTTL); err != nil {
		return ChunkResult{}, fmt.Errorf("upload chunk %d: record: %w", chunkNumber, err)
	}

	slog.Debug("chunk uploaded", "upload_id", uploadID, "chunk", chunkNumber)

	return ChunkResult{ChunkNumber: chunkNumber, Checksum: stat.Checksum}, nil
}

// CompleteUpload assembles the final object from the session's temp chunk
// objects, in ascending chunk-number order, using the backend's server-side
// compose. Every chunk 1..totalChunks must be present in storage; a partial
// set is rejected rather than composed into a truncated object.
//
// A short advisory lock excludes concurrent Complete/Abort calls for the
// same session. A chunk written after compose has enumerated its sources is
// not merged; it is orphaned and reclaimed by SweepOrphans.
//
// On compose failure the session and temp chunks are left intact so the
// call can be retried without re-uploading. Once compose succeeds, temp
// objects are deleted (failures logged, non-fatal), the dedup index is
// updated when the session carries a fingerprint, and the session is
// cleared.
func (s *UploadService) CompleteUpload(ctx context.Context, uploadID string) (CompleteResult, error) {
	if err := ctx.Err(); err != nil {
		return CompleteResult{}, fmt.Errorf("complete upload: %w", err)
	}

	locked, err := s.sessions.AcquireLock(ctx, uploadID, completeLockTTL)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("complete upload: lock: %w", err)
	}
	if !locked {
		return CompleteResult{}, fmt.Errorf("complete upload: %w", ErrCompleteInProgress)
	}
	defer func() {
		if err := s.sessions.ReleaseLock(context.WithoutCancel(ctx), uploadID); err != nil {
			slog.Warn("release session lock failed", "upload_id", uploadID, "err", err)
		}
	}()

	session, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("complete upload: %w", err)
	}

	// Presence is checked against storage, not the chunk record: chunks
	// uploaded directly through presigned URLs never pass UploadChunk.
	missing, err := s.missingChunks(ctx, session)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("complete upload: %w", err)
	}
	if len(missing) > 0 {
		return CompleteResult{}, fmt.Errorf("complete upload: missing chunks %v: %w", missing, ErrIncompleteUpload)
	}

	sources := make([]string, 0, session.TotalChunks)
	for n := 1; n <= session.TotalChunks; n++ {
		sources = append(sources, ChunkObjectName(session.ObjectName, uploadID, n))
	}

	checksum, err := s.store.ComposeObject(ctx, session.BucketName, session.ObjectName, sources)
	if err != nil {
		return CompleteResult{}, storageErr("complete upload: compose", err)
	}

	stat, err := s.store.StatObject(ctx, session.BucketName, session.ObjectName)
	if err != nil {
		return CompleteResult{}, storageErr("complete upload: stat", err)
	}

	// The final object is valid from here on; cleanup problems are logged
	// and never overturn the result.
	for _, re := range s.store.RemoveObjects(ctx, session.BucketName, sources) {
		slog.Warn("remove temp chunk failed", "upload_id", uploadID, "object", re.ObjectName, "err", re.Err)
	}

	if session.Fingerprint != "" {
		if err := s.dedup.Store(ctx, session.BucketName, session.Fingerprint, session.ObjectName, s.limits.DedupTTL); err != nil {
			slog.Warn("dedup store failed", "bucket", session.BucketName, "err", err)
		}
	}

	if err := s.sessions.Delete(ctx, uploadID); err != nil {
		slog.Warn("clear session failed", "upload_id", uploadID, "err", err)
	}

	fileURL := s.store.PublicURL(session.BucketName, session.ObjectName)
	slog.Info("multipart upload completed", "upload_id", uploadID, "object", session.ObjectName, "size", stat.Size)

	return CompleteResult{
		ObjectName: session.ObjectName,
		FileURL:    fileURL,
		FileSize:   stat.Size,
		Checksum:   checksum,
	}, nil
}

// AbortUpload cancels an upload: it deletes any temp chunk objects the
// session names and clears the session state. It is best-effort and
// idempotent; aborting an unknown or already-aborted uploadId is a no-op
// and failures are logged rather than returned.
func (s *UploadService) AbortUpload(ctx context.Context, uploadID string) {
	locked, err := s.sessions.AcquireLock(ctx, uploadID, completeLockTTL)
	if err != nil {
		slog.Warn("abort upload: lock failed", "upload_id", uploadID, "err", err)
		return
	}
	if !locked {
		slog.Warn("abort upload: completion in progress", "upload_id", uploadID)
		return
	}
	defer func() {
		if err := s.sessions.ReleaseLock(context.WithoutCancel(ctx), uploadID); err != nil {
			slog.Warn("release session lock failed", "upload_id", uploadID, "err", err)
		}
	}()

	session, err := s.sessions.Get(ctx, uploadID)
	if err == nil {
		names, listErr := s.store.ListObjects(ctx, session.BucketName, SessionChunkPrefix(uploadID))
		if listErr != nil {
			slog.Warn("abort upload: list temp chunks failed", "upload_id", uploadID, "err", listErr)
		}
		for _, re := range s.store.RemoveObjects(ctx, session.BucketName, names) {
			slog.Warn("abort upload: remove temp chunk failed", "upload_id", uploadID, "object", re.ObjectName, "err", re.Err)
		}
	} else if !errors.Is(err, ErrSessionNotFound) {
		slog.Warn("abort upload: load session failed", "upload_id", uploadID, "err", err)
	}

	if err := s.sessions.Delete(ctx, uploadID); err != nil {
		slog.Warn("abort upload: clear session failed", "upload_id", uploadID, "err", err)
	}

	slog.Info("multipart upload aborted", "upload_id", uploadID)
}

// ListUploadedChunks returns the distinct chunk numbers recorded for the
// session, ascending. A resuming client uses it to skip chunks it already
// sent. An unknown or expired session yields an empty slice, not an error.
// Chunks uploaded directly via presigned URLs are not recorded here; they
// are still honored by CompleteUpload, which checks storage.
func (s *UploadService) ListUploadedChunks(ctx context.Context, uploadID string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list uploaded chunks: %w", err)
	}

	chunks, err := s.sessions.Chunks(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list uploaded chunks: %w", err)
	}

	numbers := make([]int, 0, len(chunks))
	for n := range chunks {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	return numbers, nil
}

// Upload stores a small object directly, without a session. The bucket is
// created if absent.
func (s *UploadService) Upload(ctx context.Context, bucket, object string, content io.Reader, size int64) (CompleteResult, error) {
	if err := ctx.Err(); err != nil {
		return CompleteResult{}, fmt.Errorf("upload: %w", err)
	}

	if !IsValidBucketName(bucket) {
		return CompleteResult{}, fmt.Errorf("upload: bucket %q: %w", bucket, ErrInvalidInput)
	}
	if !IsValidObjectName(object) {
		return CompleteResult{}, fmt.Errorf("upload: object %q: %w", object, ErrInvalidInput)
	}

	if err := s.ensureBucket(ctx, bucket); err != nil {
		return CompleteResult{}, fmt.Errorf("upload: %w", err)
	}

	stat, err := s.store.PutObject(ctx, bucket, object, content, size)
	if err != nil {
		return CompleteResult{}, storageErr("upload: put", err)
	}

	return CompleteResult{
		ObjectName: object,
		FileURL:    s.store.PublicURL(bucket, object),
		FileSize:   stat.Size,
		Checksum:   stat.Checksum,
	}, nil
}

// ObjectExists reports whether the object is present in the backend.
func (s *UploadService) ObjectExists(ctx context.Context, bucket, object string) bool {
	_, err := s.store.StatObject(ctx, bucket, object)
	return err == nil
}

// SweepOrphans removes temp chunk objects whose upload session no longer
// exists. Session expiry only evicts metadata, so chunks of sessions that
// were neither completed nor aborted linger in storage until a sweep runs.
// Returns the number of objects removed.
func (s *UploadService) SweepOrphans(ctx context.Context, bucket string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sweep orphans: %w", err)
	}

	if !IsValidBucketName(bucket) {
		return 0, fmt.Errorf("sweep orphans: bucket %q: %w", bucket, ErrInvalidInput)
	}

	names, err := s.store.ListObjects(ctx, bucket, ChunkPrefix)
	if err != nil {
		return 0, storageErr("sweep orphans: list", err)
	}

	groups := make(map[string][]string)
	for _, name := range names {
		uploadID, _, ok := ParseChunkObjectName(name)
		if !ok {
			slog.Warn("sweep: unrecognized object under chunk prefix", "object", name)
			continue
		}
		groups[uploadID] = append(groups[uploadID], name)
	}

	removed := 0
	for uploadID, objects := range groups {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("sweep orphans: %w", err)
		}

		_, err := s.sessions.Get(ctx, uploadID)
		if err == nil {
			continue // session still live
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return removed, fmt.Errorf("sweep orphans: load session: %w", err)
		}

		failures := s.store.RemoveObjects(ctx, bucket, objects)
		for _, re := range failures {
			slog.Warn("sweep: remove orphan failed", "upload_id", uploadID, "object", re.ObjectName, "err", re.Err)
		}
		removed += len(objects) - len(failures)
	}

	return removed, nil
}

// missingChunks lists chunk numbers of 1..totalChunks with no temp object
// in storage.
func (s *UploadService) missingChunks(ctx context.Context, session UploadSession) ([]int, error) {
	names, err := s.store.ListObjects(ctx, session.BucketName, SessionChunkPrefix(session.UploadID))
	if err != nil {
		return nil, storageErr("list temp chunks", err)
	}

	present := make(map[int]bool, len(names))
	for _, name := range names {
		if _, n, ok := ParseChunkObjectName(name); ok {
			present[n] = true
		}
	}

	var missing []int
	for n := 1; n <= session.TotalChunks; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

func (s *UploadService) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.store.BucketExists(ctx, bucket)
	if err != nil {
		return storageErr("check bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.store.MakeBucket(ctx, bucket); err != nil {
		return storageErr("create bucket", err)
	}
	slog.Info("created bucket", "bucket", bucket)
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageBackend, err)
}

// newUploadID returns an unguessable 32-character token.
func newUploadID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
