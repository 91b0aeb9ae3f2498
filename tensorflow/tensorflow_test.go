package tensorflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opbind/tensorflow"
)

func TestListSupportedOps(t *testing.T) {
	ops := tensorflow.ListSupportedOps()

	for _, essential := range []string{"SpaceToDepth", "DepthToSpace", "OneHot", "ZerosLike", "AddV2"} {
		assert.Contains(t, ops, essential)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := tensorflow.Load(context.Background(), filepath.Join(t.TempDir(), "frozen.pb"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromBytesDefaultsToLenient(t *testing.T) {
	im, err := tensorflow.LoadFromBytes(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, "empty", im.Graph.Name())
	assert.Empty(t, im.Ops)
	assert.Empty(t, im.Skipped)
}
