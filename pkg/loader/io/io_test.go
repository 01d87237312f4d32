package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "ramayana.txt")
	require.NoError(t, os.WriteFile(p, []byte("Rama gives book to Sita.\nSita reads."), 0o600))

	l := NewFileLoader()
	doc, err := l.Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "ramayana.txt", doc.Name)
	assert.Equal(t, "Rama gives book to Sita.\nSita reads.", doc.Text)

	require.NoError(t, os.WriteFile(p, []byte("changed"), 0o600))
	cached, err := l.Load(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, doc.Text, cached.Text)
	assert.Equal(t, "file://"+p, cached.URI)

	l.Forget(p)
	fresh, err := l.Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "changed", fresh.Text)
}

func TestFileLoader_Missing(t *testing.T) {
	_, err := NewFileLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
