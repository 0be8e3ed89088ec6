package respbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipoliciak/webserv/internal/config"
)

func TestMimeTypeKnownAndUnknownExtensions(t *testing.T) {
	assert.Equal(t, "text/html", MimeType("/a/b/index.html"))
	assert.Equal(t, "image/png", MimeType("/a/b/pic.PNG"))
	assert.Equal(t, "application/octet-stream", MimeType("/a/b/file.unknownext"))
	assert.Equal(t, "application/octet-stream", MimeType("/a/b/noext"))
}

func TestStaticFileServesBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	resp := StaticFile(nil, path, false)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "hello world", string(resp.Body))
}

func TestStaticFileHeadOnlyOmitsBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	resp := StaticFile(nil, path, true)
	assert.Equal(t, 200, resp.Code)
	assert.Empty(t, resp.Body)

	var contentLength string
	for _, h := range resp.Headers {
		if h.Key == "Content-Length" {
			contentLength = h.Val
		}
	}
	assert.Equal(t, "11", contentLength)
}

func TestStaticFileMissingIs404(t *testing.T) {
	resp := StaticFile(nil, "/no/such/path", false)
	assert.Equal(t, 404, resp.Code)
}

func TestErrorPageFallsBackToBuiltin(t *testing.T) {
	resp := ErrorPage(nil, 404)
	assert.Equal(t, 404, resp.Code)
	assert.Contains(t, string(resp.Body), "404")
}

func TestErrorPageUsesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom404.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>custom not found</p>"), 0o644))

	srv := &config.Server{ErrorPages: map[int]string{404: path}}
	resp := ErrorPage(srv, 404)
	assert.Equal(t, "<p>custom not found</p>", string(resp.Body))
}

func TestDirectoryListingOrdersDirsBeforeFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zzz-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aaa-file.txt"), []byte("x"), 0o644))

	resp, err := DirectoryListing(dir, "/files/")
	require.NoError(t, err)
	body := string(resp.Body)

	dirIdx := strings.Index(body, "zzz-dir/")
	fileIdx := strings.Index(body, "aaa-file.txt")
	require.NotEqual(t, -1, dirIdx)
	require.NotEqual(t, -1, fileIdx)
	assert.Less(t, dirIdx, fileIdx)
}

func TestSingleUploadMovesSpoolIntoUploadDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "spoolfile")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	resp, err := SingleUpload(src, uploadDir, "/uploads/report.txt")
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Code)

	body, err := os.ReadFile(filepath.Join(uploadDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestJSONUploadRejectsMalformedBody(t *testing.T) {
	src := filepath.Join(t.TempDir(), "spoolfile")
	require.NoError(t, os.WriteFile(src, []byte("{not valid json"), 0o644))

	dest := filepath.Join(t.TempDir(), "data")
	resp, err := JSONUpload(src, nil, dest, "/data")
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Code)
}

func TestJSONUploadAcceptsWellFormedBody(t *testing.T) {
	src := filepath.Join(t.TempDir(), "spoolfile")
	require.NoError(t, os.WriteFile(src, []byte(`{"a":1}`), 0o644))

	destDir := t.TempDir()
	dest := filepath.Join(destDir, "record.json")
	resp, err := JSONUpload(src, nil, dest, "/record.json")
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Code)

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
}
