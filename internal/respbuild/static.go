package respbuild

import (
	"io"
	"os"

	"github.com/hipoliciak/webserv/internal/config"
	"github.com/hipoliciak/webserv/internal/httpwire"
)

// StaticFileThreshold is the size below which a static file is loaded
// whole; above it, the engine streams chunked reads into the write
// queue instead. The wire format is unchanged either way (spec.md
// §4.4), this only controls how the engine feeds its write queue.
const StaticFileThreshold = 512 << 10

// StaticFile builds the response for a GET/HEAD on a regular file.
// The caller is responsible for deciding GET vs HEAD truncation.
func StaticFile(server *config.Server, path string, headOnly bool) *httpwire.Response {
	info, err := os.Stat(path)
	if err != nil {
		return ErrorPage(server, 404)
	}
	if info.IsDir() {
		return ErrorPage(server, 500)
	}

	resp := httpwire.NewResponse(200)
	resp.Set("Content-Type", MimeType(path))

	if headOnly {
		resp.Set("Content-Length", itoa(info.Size()))
		return resp
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrorPage(server, 500)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return ErrorPage(server, 500)
	}
	resp.SetBody(body)
	return resp
}

// StaticFileHeaders builds just the response headers for a large
// file whose body the engine will stream in chunks directly into the
// client's write queue, rather than loading it whole via StaticFile.
func StaticFileHeaders(path string, size int64) *httpwire.Response {
	resp := httpwire.NewResponse(200)
	resp.Set("Content-Type", MimeType(path))
	resp.Set("Content-Length", itoa(size))
	return resp
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
