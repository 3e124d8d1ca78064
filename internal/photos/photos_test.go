package photos

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "photos"), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"x.GIF":      ".png",
		"y.jpg":      ".jpg",
		"scan.TIFF":  ".tiff",
		"photo.JPEG": ".jpeg",
		"noext":      ".png",
		"":           ".png",
		"a.tar.tif":  ".tif",
	}
	for name, want := range tests {
		assert.Equal(t, want, Ext(name), name)
	}
}

func TestSaveUsesAllowedExtension(t *testing.T) {
	s := newTestStore(t)

	gif, err := s.Save([]byte("gif"), "x.GIF")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(gif))

	jpg, err := s.Save([]byte("jpg"), "y.jpg")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(jpg))

	assert.Equal(t, s.Dir, filepath.Dir(jpg))
	data, err := os.ReadFile(jpg)
	require.NoError(t, err)
	assert.Equal(t, "jpg", string(data))
}

func TestSaveEmptyUploadStoresNothing(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save(nil, "x.png")
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveZeroByteUpload(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save([]byte{}, "blank.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, ".jpg", filepath.Ext(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestSaveNameCollisionAdvances(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2025, 1, 10, 9, 30, 15, 123456000, time.Local)
	s.now = func() time.Time { return fixed }

	first, err := s.Save([]byte("a"), "a.png")
	require.NoError(t, err)
	second, err := s.Save([]byte("b"), "b.png")
	require.NoError(t, err)

	assert.Equal(t, "20250110_093015_123456.png", filepath.Base(first))
	assert.Equal(t, "20250110_093015_123457.png", filepath.Base(second))
}

func TestReplace(t *testing.T) {
	s := newTestStore(t)

	old, err := s.Save([]byte("old"), "a.png")
	require.NoError(t, err)

	kept, err := s.Replace(old, nil, "")
	require.NoError(t, err)
	assert.Equal(t, old, kept)
	assert.FileExists(t, old)

	fresh, err := s.Replace(old, []byte("new"), "b.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestDeleteIsBestEffort(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save([]byte("x"), "x.png")
	require.NoError(t, err)

	s.Delete(path)
	assert.NoFileExists(t, path)

	// Already gone, and empty paths, are fine.
	s.Delete(path)
	s.Delete("")
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save([]byte("content"), "x.png")
	require.NoError(t, err)

	rc, err := s.Open(path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = s.Open(filepath.Join(s.Dir, "missing.png"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a/b/20250110_093015_000001.JPG"))
	assert.Equal(t, "image/tiff", ContentType("x.tif"))
	assert.Equal(t, "image/png", ContentType("x.png"))
	assert.Equal(t, "application/octet-stream", ContentType("x"))
}
