package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/partflow/partflow"
)

type Service interface {
	InitUpload(ctx context.Context, req partflow.InitRequest) (partflow.InitResult, error)
	UploadChunk(ctx context.Context, uploadID string, chunkNumber int, content io.Reader, size int64) (partflow.ChunkResult, error)
	CompleteUpload(ctx context.Context, uploadID string) (partflow.CompleteResult, error)
	AbortUpload(ctx context.Context, uploadID string)
	ListUploadedChunks(ctx context.Context, uploadID string) ([]int, error)
	Upload(ctx context.Context, bucket, object string, content io.Reader, size int64) (partflow.CompleteResult, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS CORSConfig
}

// Handler provides HTTP handlers for the multipart upload API.
type Handler struct {
	config   HandlerConfig
	service  Service
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:   *config,
		service:  service,
		validate: validator.New(),
	}
}

// Router returns an http.Handler with the multipart routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Route("/api/multipart", func(r chi.Router) {
		r.Post("/init", h.handleInit)
		r.Route("/{uploadID}", func(r chi.Router) {
			r.Put("/chunks/{chunkNumber}", h.handleUploadChunk)
			r.Get("/chunks", h.handleListChunks)
			r.Post("/complete", h.handleComplete)
			r.Delete("/", h.handleAbort)
		})
	})

	r.Put("/api/objects/{bucket}/*", h.handleDirectUpload)

	return r
}

type initRequest struct {
	BucketName  string `json:"bucket_name" validate:"required"`
	ObjectName  string `json:"object_name" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"required,gt=0"`
	ChunkSize   int64  `json:"chunk_size" validate:"gte=0"`
	Fingerprint string `json:"fingerprint"`
	ContentType string `json:"content_type"`
}

func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	result, err := h.service.InitUpload(r.Context(), partflow.InitRequest{
		BucketName:  req.BucketName,
		ObjectName:  req.ObjectName,
		FileSize:    req.FileSize,
		ChunkSize:   req.ChunkSize,
		Fingerprint: req.Fingerprint,
		ContentType: req.ContentType,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	chunkNumber, err := strconv.Atoi(chi.URLParam(r, "chunkNumber"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Chunk number must be an integer")
		return
	}

	result, err := h.service.UploadChunk(r.Context(), uploadID, chunkNumber, r.Body, r.ContentLength)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListChunks(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	chunks, err := h.service.ListUploadedChunks(r.Context(), uploadID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string][]int{"uploaded_chunks": chunks})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	result, err := h.service.CompleteUpload(r.Context(), uploadID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	h.service.AbortUpload(r.Context(), uploadID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDirectUpload(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	object := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	if object == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Object name is required")
		return
	}

	result, err := h.service.Upload(r.Context(), bucket, object, r.Body, r.ContentLength)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}
