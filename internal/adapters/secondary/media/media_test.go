package media_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle-board/internal/adapters/secondary/media"
	"github.com/jupiterclapton/cenackle-board/internal/core/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDataURLStore(t *testing.T) {
	url, err := media.DataURLStore{}.Upload(context.Background(), &domain.Image{Name: "a.png", ContentType: "text/plain", Data: pngHeader})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"), "the sniffed type wins over the declared one")

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, raw)
}

func TestRejectsNonImages(t *testing.T) {
	store := media.DataURLStore{}
	_, err := store.Upload(context.Background(), &domain.Image{Data: []byte("<html>hi</html>")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)

	_, err = store.Upload(context.Background(), nil)
	assert.ErrorAs(t, err, &verr)

	big := append(append([]byte{}, pngHeader...), make([]byte, media.MaxImageBytes)...)
	_, err = store.Upload(context.Background(), &domain.Image{Data: big})
	assert.ErrorAs(t, err, &verr)
}

// Nécessite un MinIO : TEST_MINIO_ENDPOINT=localhost:9000 (identifiants minio/minio123)
func TestMinioStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	store, err := media.NewMinioStore(media.MinioConfig{
		Endpoint: endpoint, AccessKey: "minio", SecretKey: "minio123", Bucket: "board-test",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	url, err := store.Upload(ctx, &domain.Image{Name: "a.png", Data: pngHeader})
	require.NoError(t, err)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}
