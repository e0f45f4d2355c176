package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root, "http://localhost:8080/files/")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "signatures/q1.png", []byte("png"), "image/png"))
	assert.FileExists(t, filepath.Join(root, "signatures", "q1.png"))

	obj, err := s.Get(ctx, "signatures/q1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), obj.Content)
	assert.Equal(t, "image/png", obj.ContentType)

	url, err := s.URL(ctx, "signatures/q1.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/signatures/q1.png", url)

	require.NoError(t, s.Delete(ctx, "signatures/q1.png"))
	require.NoError(t, s.Delete(ctx, "signatures/q1.png"))

	_, err = s.URL(ctx, "signatures/q1.png")
	assert.True(t, apperror.IsNotFound(err))
	_, err = s.Get(ctx, "signatures/q1.png")
	assert.True(t, apperror.IsNotFound(err))
}

func TestStoreStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	root := filepath.Join(parent, "files")
	s, err := New(root, "http://x")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "../../escape.txt", []byte("x"), "text/plain"))
	assert.FileExists(t, filepath.Join(root, "escape.txt"))
	_, err = os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Put(ctx, "  ", nil, ""))
}
