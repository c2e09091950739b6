package partflow_test

import (
	"testing"
	"time"

	"github.com/partflow/partflow"
	"github.com/stretchr/testify/assert"
)

func TestChunkCount(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int64
		chunkSize int64
		want      int
	}{
		{
			name:      "exact multiple",
			fileSize:  10 * 1024 * 1024,
			chunkSize: 5 * 1024 * 1024,
			want:      2,
		},
		{
			name:      "remainder adds a chunk",
			fileSize:  12_000_000,
			chunkSize: 5_000_000,
			want:      3,
		},
		{
			name:      "file smaller than chunk",
			fileSize:  100,
			chunkSize: 5 * 1024 * 1024,
			want:      1,
		},
		{
			name:      "single byte",
			fileSize:  1,
			chunkSize: 1,
			want:      1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, partflow.ChunkCount(tc.fileSize, tc.chunkSize))
		})
	}
}

func TestLimits_WithDefaults(t *testing.T) {
	t.Run("zero value gets all defaults", func(t *testing.T) {
		l := partflow.Limits{}.WithDefaults()
		assert.Equal(t, partflow.DefaultLimits(), l)
	})

	t.Run("set fields are preserved", func(t *testing.T) {
		l := partflow.Limits{
			MinChunkSize: 1024,
			SessionTTL:   time.Minute,
		}.WithDefaults()

		assert.Equal(t, int64(1024), l.MinChunkSize)
		assert.Equal(t, time.Minute, l.SessionTTL)
		assert.Equal(t, int64(partflow.DefaultMaxChunkSize), l.MaxChunkSize)
		assert.Equal(t, partflow.DefaultMaxChunkCount, l.MaxChunkCount)
	})
}

func TestLimits_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limits  partflow.Limits
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			limits:  partflow.DefaultLimits(),
			wantErr: false,
		},
		{
			name: "max below min",
			limits: partflow.Limits{
				MinChunkSize:  10,
				MaxChunkSize:  5,
				MaxChunkCount: 1,
			},
			wantErr: true,
		},
		{
			name: "zero min chunk size",
			limits: partflow.Limits{
				MaxChunkSize:  10,
				MaxChunkCount: 1,
			},
			wantErr: true,
		},
		{
			name: "zero max chunk count",
			limits: partflow.Limits{
				MinChunkSize: 1,
				MaxChunkSize: 10,
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.limits.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
