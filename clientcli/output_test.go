package clientcli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partflow/partflow/clientcli"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		formatter := clientcli.NewFormatter(true, false)
		_, ok := formatter.(*clientcli.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter", func(t *testing.T) {
		formatter := clientcli.NewFormatter(false, false)
		_, ok := formatter.(*clientcli.HumanFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		formatter := clientcli.NewFormatter(false, true)
		hf, ok := formatter.(*clientcli.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func TestHumanFormatter_FormatUpload(t *testing.T) {
	t.Run("chunked upload", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{}
		result := &clientcli.UploadResult{
			UploadID:   "u-1",
			ObjectName: "videos/clip.mp4",
			FileURL:    "http://localhost:9000/media/videos/clip.mp4",
			Size:       12 * 1024 * 1024,
			Checksum:   "abc123",
			ChunksSent: 3,
		}

		var buf bytes.Buffer
		err := formatter.FormatUpload(&buf, result)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "Uploaded: videos/clip.mp4")
		assert.Contains(t, output, "12.0 MB")
		assert.Contains(t, output, "Chunks sent: 3")
		assert.Contains(t, output, "Checksum: abc123")
		assert.Contains(t, output, "URL: http://localhost:9000/media/videos/clip.mp4")
		assert.NotContains(t, output, "resumed")
	})

	t.Run("instant upload", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{}
		result := &clientcli.UploadResult{
			ObjectName:    "videos/clip.mp4",
			Size:          2048,
			InstantUpload: true,
		}

		var buf bytes.Buffer
		err := formatter.FormatUpload(&buf, result)
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "Instant upload: videos/clip.mp4")
		assert.Contains(t, output, "already stored")
		assert.NotContains(t, output, "Chunks sent")
	})

	t.Run("resumed upload", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{}
		result := &clientcli.UploadResult{
			ObjectName:    "clip.mp4",
			Size:          4096,
			ChunksSent:    1,
			ChunksSkipped: 2,
		}

		var buf bytes.Buffer
		err := formatter.FormatUpload(&buf, result)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "resumed, 2 already present")
	})

	t.Run("quiet mode", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{Quiet: true}
		result := &clientcli.UploadResult{ObjectName: "clip.mp4", Size: 1024}

		var buf bytes.Buffer
		err := formatter.FormatUpload(&buf, result)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}

func TestHumanFormatter_FormatChunks(t *testing.T) {
	t.Run("with chunks", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{}

		var buf bytes.Buffer
		err := formatter.FormatChunks(&buf, "u-1", []int{1, 2, 4})
		require.NoError(t, err)

		output := buf.String()
		assert.Contains(t, output, "Upload u-1")
		assert.Contains(t, output, "3 chunk(s) received")
		assert.Contains(t, output, "1, 2, 4")
	})

	t.Run("empty", func(t *testing.T) {
		formatter := &clientcli.HumanFormatter{}

		var buf bytes.Buffer
		err := formatter.FormatChunks(&buf, "u-1", nil)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "no chunks received yet")
	})
}

func TestHumanFormatter_FormatAbort(t *testing.T) {
	formatter := &clientcli.HumanFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatAbort(&buf, "u-1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Aborted upload u-1")
}

func TestHumanFormatter_FormatError(t *testing.T) {
	formatter := &clientcli.HumanFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatError(&buf, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestHumanFormatter_FormatProfileList(t *testing.T) {
	formatter := &clientcli.HumanFormatter{}
	profiles := []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:5710", Bucket: "media"},
		{Name: "production", Endpoint: "https://upload.example.com"},
	}

	var buf bytes.Buffer
	err := formatter.FormatProfileList(&buf, profiles, "production")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "BUCKET")
	assert.Contains(t, output, "  local")
	assert.Contains(t, output, "* production")
	assert.Contains(t, output, "media")
	assert.Contains(t, output, "(not set)")
}

func TestHumanFormatter_FormatProfileShow(t *testing.T) {
	formatter := &clientcli.HumanFormatter{}
	profile := clientcli.Profile{Name: "local", Endpoint: "http://localhost:5710", Bucket: "media"}

	var buf bytes.Buffer
	err := formatter.FormatProfileShow(&buf, profile, true)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "local (default)")
	assert.Contains(t, output, "Endpoint: http://localhost:5710")
	assert.Contains(t, output, "Bucket:   media")
}

func TestJSONFormatter_FormatUpload(t *testing.T) {
	formatter := &clientcli.JSONFormatter{}
	result := &clientcli.UploadResult{
		UploadID:   "u-1",
		ObjectName: "clip.mp4",
		Size:       2048,
		ChunksSent: 2,
	}

	var buf bytes.Buffer
	err := formatter.FormatUpload(&buf, result)
	require.NoError(t, err)

	var decoded clientcli.UploadResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *result, decoded)
}

func TestJSONFormatter_FormatChunks(t *testing.T) {
	formatter := &clientcli.JSONFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatChunks(&buf, "u-1", nil)
	require.NoError(t, err)

	var decoded struct {
		UploadID       string `json:"upload_id"`
		UploadedChunks []int  `json:"uploaded_chunks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "u-1", decoded.UploadID)
	assert.NotNil(t, decoded.UploadedChunks)
	assert.Empty(t, decoded.UploadedChunks)
}

func TestJSONFormatter_FormatAbort(t *testing.T) {
	formatter := &clientcli.JSONFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatAbort(&buf, "u-1")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "u-1", decoded["upload_id"])
	assert.Equal(t, true, decoded["aborted"])
}

func TestJSONFormatter_FormatError(t *testing.T) {
	formatter := &clientcli.JSONFormatter{}

	var buf bytes.Buffer
	err := formatter.FormatError(&buf, errors.New("boom"))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "boom", decoded["error"])
}

func TestJSONFormatter_FormatProfileList(t *testing.T) {
	formatter := &clientcli.JSONFormatter{}
	profiles := []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:5710", Bucket: "media"},
		{Name: "production", Endpoint: "https://upload.example.com"},
	}

	var buf bytes.Buffer
	err := formatter.FormatProfileList(&buf, profiles, "local")
	require.NoError(t, err)

	var decoded struct {
		Profiles []struct {
			Name    string `json:"name"`
			Bucket  string `json:"bucket"`
			Default bool   `json:"default"`
		} `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Profiles, 2)
	assert.True(t, decoded.Profiles[0].Default)
	assert.Equal(t, "media", decoded.Profiles[0].Bucket)
	assert.False(t, decoded.Profiles[1].Default)
}
