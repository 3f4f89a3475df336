package radio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAsset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	a, err := openAsset(dir, "/index.html")
	require.NoError(t, err)
	defer a.Close()

	body, err := io.ReadAll(a)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(body))
	assert.Contains(t, a.ContentType, "text/html")

	for _, name := range []string{"missing.css", "sub", "../../etc/passwd"} {
		_, err := openAsset(dir, name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}
