package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/partflow/partflow"
	partflowhttp "github.com/partflow/partflow/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := partflowhttp.WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	partflowhttp.WriteError(rec, http.StatusNotFound, "session_not_found", "Upload session not found or expired")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp partflowhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "session_not_found", errResp.Error)
	assert.Equal(t, "Upload session not found or expired", errResp.Message)
}

func TestHandleError_WrappedErrors(t *testing.T) {
	// Wrapping must not defeat the mapping.
	wrapped := fmt.Errorf("complete upload: missing chunks [3]: %w", partflow.ErrIncompleteUpload)

	rec := httptest.NewRecorder()
	partflowhttp.HandleError(rec, wrapped)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp partflowhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "incomplete_upload", errResp.Error)
	assert.Contains(t, errResp.Message, "missing chunks")
}
