package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveKeepsOriginalNameAsMetadata(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save(strings.NewReader("hello attachment"), "notes.txt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref.URL, "/uploads/"))
	require.True(t, strings.HasSuffix(ref.URL, ".txt"))
	require.Equal(t, "notes.txt", ref.Name)

	stored := filepath.Join(store.Dir(), strings.TrimPrefix(ref.URL, "/uploads/"))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	require.Equal(t, "hello attachment", string(data))
}

func TestSaveSniffsExtensionWhenMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	pngHeader := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16)
	ref, err := store.Save(strings.NewReader(pngHeader), "screenshot")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(ref.URL, ".png"))
	require.Equal(t, "image/png", ref.ContentType)
}

func TestSaveGeneratesUniqueStoredNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(strings.NewReader("one"), "same.txt")
	require.NoError(t, err)
	b, err := store.Save(strings.NewReader("two"), "same.txt")
	require.NoError(t, err)
	require.NotEqual(t, a.URL, b.URL)
}
