package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()

	a := New()
	payload := []byte("<html>x</html>")

	uri, err := a.PutObject(context.Background(), "titles/100/1.html", "text/html", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://titles/100/1.html", uri)

	payload[0] = '!'

	stored, ok := a.Get("titles/100/1.html")
	require.True(t, ok)
	require.Equal(t, "<html>x</html>", string(stored), "stored bytes are detached from the caller's slice")
	require.Equal(t, 1, a.Len())
}

func TestGetUnknownPath(t *testing.T) {
	t.Parallel()

	a := New()
	_, ok := a.Get("missing")
	require.False(t, ok)
}
