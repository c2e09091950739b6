package clientcli

// UploadOptions configures a multipart upload.
type UploadOptions struct {
	LocalPath   string
	Bucket      string
	ObjectName  string // optional, defaults to the file's base name
	ChunkSize   int64  // optional, zero lets the coordinator pick
	ContentType string // optional, auto-detect if empty
	ResumeID    string // optional, resume a previous session instead of starting a new one
}

// UploadResult represents the result of a multipart upload.
type UploadResult struct {
	UploadID      string `json:"upload_id,omitempty"`
	ObjectName    string `json:"object_name"`
	FileURL       string `json:"file_url"`
	Size          int64  `json:"size_bytes"`
	Checksum      string `json:"checksum,omitempty"`
	InstantUpload bool   `json:"instant_upload"`
	ChunksSent    int    `json:"chunks_sent"`
	ChunksSkipped int    `json:"chunks_skipped"`
}

// chunkListResponse mirrors the JSON response of the chunk listing endpoint.
type chunkListResponse struct {
	UploadedChunks []int `json:"uploaded_chunks"`
}
