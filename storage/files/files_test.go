package filestore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

func testStore(t *testing.T, store core.FileStore) {
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a.pdf", strings.NewReader("%PDF-1.4 hello")))

	rc, err := store.Open(ctx, "a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 hello", string(data))

	_, err = store.Open(ctx, "missing.pdf")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, store.Delete(ctx, "a.pdf"))
	_, err = store.Open(ctx, "a.pdf")
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(store.Delete(ctx, "a.pdf")))

	assert.Error(t, store.Save(ctx, "../escape.pdf", strings.NewReader("x")))
	assert.Error(t, store.Save(ctx, "", strings.NewReader("x")))
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	testStore(t, store)

	// each kind of upload gets its own directory
	require.NoError(t, store.Save(context.Background(), "planeaciones/p.pdf", strings.NewReader("%PDF-1.4")))
	require.NoError(t, store.Save(context.Background(), "evidencias/e.png", strings.NewReader("png")))
	assert.FileExists(t, filepath.Join(root, "planeaciones", "p.pdf"))
	assert.FileExists(t, filepath.Join(root, "evidencias", "e.png"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	assert.Empty(t, store.Keys())

	store.FailSave = io.ErrUnexpectedEOF
	assert.ErrorIs(t, store.Save(context.Background(), "b.pdf", strings.NewReader("x")), io.ErrUnexpectedEOF)
}
