package sourcestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync/internal/apperrors"
)

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "doc-1", []byte("hello world")))

	got, err := s.Read(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func TestStore_WriteOverwritesExisting(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "doc-1", []byte("v1")))
	require.NoError(t, s.Write(ctx, "doc-1", []byte("v2")))

	got, err := s.Read(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestStore_ReadMissingKeyReturnsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorCodeNotFound, apperrors.CodeOf(err))
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "never-written"))

	require.NoError(t, s.Write(ctx, "doc-1", []byte("data")))
	require.NoError(t, s.Delete(ctx, "doc-1"))
	require.NoError(t, s.Delete(ctx, "doc-1"))

	_, err = s.Read(ctx, "doc-1")
	require.Error(t, err)
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Read(ctx, "../escape")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorCodeValidation, apperrors.CodeOf(err))

	err = s.Write(ctx, "../escape", []byte("x"))
	require.Error(t, err)
}
