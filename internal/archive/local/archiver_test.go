package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}

func TestNewCreatesMissingBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "archive", "pages")
	_, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestPutObjectWritesFileAndReturnsURI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := a.PutObject(context.Background(), "titles/100/1.html", "text/html", []byte("<html>x</html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, "titles", "100", "1.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>x</html>", string(data))
}

func TestPutObjectAppliesPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := New(Config{BaseDir: dir, Prefix: "raw"})
	require.NoError(t, err)

	_, err = a.PutObject(context.Background(), "serp/100/1.html", "text/html", []byte("page"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "raw", "serp", "100", "1.html"))
	require.NoError(t, err)
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	a, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = a.PutObject(context.Background(), "../escape.html", "text/html", []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "traversal")
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	a, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = a.PutObject(context.Background(), "  ", "text/html", []byte("x"))
	require.Error(t, err)
}
