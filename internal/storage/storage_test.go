package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/backroom/internal/config"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.UploadObject(ctx, "reorder/2024-03-01/run-1.csv", []byte("item_id\nA\n")))

	require.NoError(t, store.UploadObject(ctx, "reorder/index.json", []byte("{}")))
	require.NoError(t, store.UploadObject(ctx, "other/run-9.csv", []byte("x")))

	objects, err := store.ListObjects(ctx, "reorder")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	sizes := map[string]int64{}
	for _, o := range objects {
		sizes[o.Key] = o.Size
	}
	assert.Equal(t, map[string]int64{"reorder/2024-03-01/run-1.csv": 10, "reorder/index.json": 2}, sizes)

	all, err := store.ListObjects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dest := filepath.Join(t.TempDir(), "out", "copy.csv")
	require.NoError(t, store.DownloadObject(ctx, "reorder/2024-03-01/run-1.csv", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "item_id\nA\n", string(data))

	empty, err := store.ListObjects(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{in: "https://s3.example.com", useSSL: false, wantHost: "s3.example.com", wantSecure: true},
		{in: "http://minio:9000", useSSL: true, wantHost: "minio:9000", wantSecure: false},
		{in: "minio:9000", useSSL: true, wantHost: "minio:9000", wantSecure: true},
	}
	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.in, tt.useSSL)
		assert.Equal(t, tt.wantHost, host)
		assert.Equal(t, tt.wantSecure, secure)
	}
}

func TestNewMinioClient_Validates(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{})
	assert.Error(t, err)

	_, err = NewMinioClient(MinioConfig{Endpoint: "minio:9000", Bucket: "b"})
	assert.Error(t, err)

	client, err := NewMinioClient(MinioConfig{Endpoint: "minio:9000", AccessKey: "k", SecretKey: "s", Bucket: "reports"})
	require.NoError(t, err)
	assert.Equal(t, "reports", client.bucket)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a/b.csv"))
	assert.Equal(t, "application/json", contentType("a/b.json"))
	assert.Equal(t, "application/octet-stream", contentType("a/b"))
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
