// Package partflow implements a resumable multipart object-upload
// coordinator: a large file is uploaded as independent chunks, chunk
// arrival is tracked per session, identical content is deduplicated across
// uploads, and the final object is assembled server-side once all chunks
// are present.
//
// # Key Components
//
//   - UploadService: the coordinator, exposing InitUpload, UploadChunk,
//     CompleteUpload, AbortUpload and ListUploadedChunks
//   - ObjectStore: interface over the object storage backend
//     (put/stat/remove/compose/presign); implemented by the miniostore
//     package
//   - SessionRepo, DedupIndex: interfaces over the TTL-capable metadata
//     store; implemented by the redisstore package
//
// # Lifecycle
//
// A session is created by InitUpload, accumulates chunks in any order
// through UploadChunk (or direct PUTs against the presigned URLs issued at
// init), and ends in exactly one of: CompleteUpload, AbortUpload, or silent
// TTL expiry. Expiry removes only metadata; orphaned temp chunk objects are
// reclaimed by UploadService.SweepOrphans.
//
//	service, err := partflow.NewUploadService(store, sessions, dedup, partflow.DefaultLimits())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	init, err := service.InitUpload(ctx, partflow.InitRequest{
//	    BucketName: "media",
//	    ObjectName: "videos/intro.mp4",
//	    FileSize:   fileSize,
//	})
//
// See the http package for the REST surface and the clientcli package for a
// resumable upload client.
package partflow
