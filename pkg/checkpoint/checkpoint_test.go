package checkpoint

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(t.TempDir(), nil)

	got, err := r.Resolve(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = r.Resolve(context.Background(), "file://"+dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = r.Resolve(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), "  ")
	assert.Error(t, err)
}

func TestResolveDownloadsAndCaches(t *testing.T) {
	archive := tarball(t, map[string]string{
		"model.ckpt.index":               "index",
		"model.ckpt.data-00000-of-00001": "weights",
	})

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&hits, 1)
		if req.URL.Path != "/checkpoints/hierdec-trio_16bar.tar" {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	cache := t.TempDir()
	r := NewResolver(cache, srv.Client())
	locator := srv.URL + "/checkpoints/hierdec-trio_16bar.tar"

	got, err := r.Resolve(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "hierdec-trio_16bar"), got)

	data, err := os.ReadFile(filepath.Join(got, "model.ckpt.index"))
	require.NoError(t, err)
	assert.Equal(t, "index", string(data))
	assert.NoFileExists(t, filepath.Join(cache, "hierdec-trio_16bar.tar"))

	_, err = r.Resolve(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second resolve must use the cache")

	r.ForceDownload(true)
	_, err = r.Resolve(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	_, err = r.Resolve(context.Background(), srv.URL+"/checkpoints/missing.tar")
	assert.Error(t, err)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar")
	require.NoError(t, os.WriteFile(archive, tarball(t, map[string]string{"../escape": "x"}), 0644))

	err := extractTar(archive, filepath.Join(dir, "out"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "escape"))
}

func TestResolveDoesNotCacheTruncatedArchive(t *testing.T) {
	archive := tarball(t, map[string]string{
		"model.ckpt.data-00000-of-00001": "weights that are long enough",
	})

	var truncate atomic.Bool
	truncate.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if truncate.Load() {
			_, _ = w.Write(archive[:512+5])
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	cache := t.TempDir()
	r := NewResolver(cache, srv.Client())
	locator := srv.URL + "/hierdec-trio_16bar.tar"
	target := filepath.Join(cache, "hierdec-trio_16bar")

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), locator)
		require.Error(t, err, "attempt %d", i)
		assert.NoDirExists(t, target)
		assert.NoDirExists(t, target+".part")
	}

	truncate.Store(false)
	got, err := r.Resolve(context.Background(), locator)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(got, "model.ckpt.data-00000-of-00001"))
	require.NoError(t, err)
	assert.Equal(t, "weights that are long enough", string(data))
}
