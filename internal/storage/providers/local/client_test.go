package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/campuslib/internal/storage"
)

func TestClient_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(t.TempDir())
	require.NoError(t, err)

	key, err := storage.SaveNew(ctx, client, "resources", "Annual Report.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "resources/"))
	assert.True(t, strings.HasSuffix(key, "-Annual_Report.pdf"))

	rc, err := client.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, client.Delete(ctx, key))
	_, err = client.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotExist)

	assert.NoError(t, client.Delete(ctx, key), "deleting twice is not an error")
}

func TestClient_RejectsKeysOutsideRoot(t *testing.T) {
	client, err := NewClient(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		err := client.Save(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, errOutsideRoot, key)
	}
}

func TestNewKey_Unique(t *testing.T) {
	a := storage.NewKey("covers", "../../x.png")
	b := storage.NewKey("covers", "../../x.png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "-x.png"))
	assert.NotContains(t, a, "..")
}
