package partflow

import "errors"

var (
	// ErrInvalidInput is returned when request validation fails before any
	// state is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidChunkConfig is returned when the declared file size and
	// chunk size would produce more chunks than the configured maximum.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
	// ErrSessionNotFound is returned when an unknown or expired uploadId is
	// presented.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrIncompleteUpload is returned by CompleteUpload when one or more
	// chunk objects are missing from storage.
	ErrIncompleteUpload = errors.New("incomplete upload")
	// ErrCompleteInProgress is returned when a complete or abort is already
	// running for the session.
	ErrCompleteInProgress = errors.New("completion already in progress")
	// ErrStorageBackend wraps transient storage I/O failures; callers may
	// retry the operation.
	ErrStorageBackend = errors.New("storage backend error")
	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
)
