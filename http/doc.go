// Package http exposes the partflow upload coordinator as a RESTful API.
//
// # Endpoints
//
//   - POST   /api/multipart/init                        start an upload session
//   - PUT    /api/multipart/{uploadID}/chunks/{n}       upload one chunk through the coordinator
//   - GET    /api/multipart/{uploadID}/chunks           list chunk numbers already received
//   - POST   /api/multipart/{uploadID}/complete         assemble the final object
//   - DELETE /api/multipart/{uploadID}                  abort the upload
//   - PUT    /api/objects/{bucket}/{object...}          direct single-request upload
//
// Clients holding the presigned URLs from the init response may PUT chunk
// bytes straight to the storage backend instead of proxying them through
// the chunk endpoint; completion honors both paths.
//
// # Errors
//
// Errors are returned as JSON bodies with a stable error code:
//
//	{"error": "session_not_found", "message": "Upload session not found or expired"}
//
// Domain errors map to 400 (invalid input or chunk layout), 404 (unknown
// session), 409 (incomplete upload, concurrent completion), and 502
// (storage backend failure).
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{}, service)
//	http.ListenAndServe(":8080", handler.Router())
package http
