package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		uri     string
		want    Location
		wantErr bool
	}{
		{uri: "model.onnx", want: Location{Key: "model.onnx"}},
		{uri: "/tmp/graph.pb", want: Location{Key: "/tmp/graph.pb"}},
		{uri: "gs://models/vision/s2d.onnx", want: Location{Bucket: "models", Key: "vision/s2d.onnx"}},
		{uri: "gs://models", wantErr: true},
		{uri: "gs:///key", wantErr: true},
		{uri: "s3://bucket/key", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := Parse(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.uri, got.String())
		})
	}
}

func TestReadFileLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.pb")
	require.NoError(t, os.WriteFile(path, []byte{0x0a, 0x00}, 0o600))

	data, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x00}, data)

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pb"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
