package httpwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeadBasic(t *testing.T) {
	raw := []byte("GET /index.html HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nHELLO")
	h, err := ParseHead(raw)
	require.NoError(t, err)
	assert.Equal(t, "GET", h.Method)
	assert.Equal(t, "/index.html", h.URI)
	assert.Equal(t, "HTTP/1.1", h.Proto)
	assert.EqualValues(t, 5, h.ContentLength)
	assert.True(t, h.HasContentLength)
	assert.Equal(t, "x", h.Get("Host"))
	assert.Equal(t, raw[:h.Consumed], raw[:len("GET /index.html HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\n")])
}

func TestParseHeadIncomplete(t *testing.T) {
	_, err := ParseHead([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseHeadLFFallback(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\nHost: x\n\n")
	h, err := ParseHead(raw)
	require.NoError(t, err)
	assert.Equal(t, "/", h.URI)
}

func TestParseHeadMalformedRequestLine(t *testing.T) {
	_, err := ParseHead([]byte("BADLINE\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestChunkedFlag(t *testing.T) {
	raw := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")
	h, err := ParseHead(raw)
	require.NoError(t, err)
	assert.True(t, h.Chunked)
}

func TestExpect100(t *testing.T) {
	raw := []byte("POST /x HTTP/1.1\r\nExpect: 100-continue\r\n\r\n")
	h, err := ParseHead(raw)
	require.NoError(t, err)
	assert.True(t, h.Expect100)
}

func TestChunkLineHexWithExtension(t *testing.T) {
	size, consumed, err := ChunkLine([]byte("1a;foo=bar\r\nrest"))
	require.NoError(t, err)
	assert.EqualValues(t, 0x1a, size)
	assert.Equal(t, len("1a;foo=bar\r\n"), consumed)
}

func TestChunkLineIncomplete(t *testing.T) {
	_, _, err := ChunkLine([]byte("1a;foo=bar"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestResponseBuildKeepAlive(t *testing.T) {
	r := NewResponse(200)
	r.Set("Content-Type", "text/html")
	r.SetBody([]byte("hello\n"))

	out := r.Build(nil)
	s := string(out)
	assert.Contains(t, s, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, s, "Content-Length: 6\r\n")
	assert.Contains(t, s, "Connection: keep-alive\r\n")
	assert.Contains(t, s, "hello\n")
}

func TestResponseBuildClose(t *testing.T) {
	r := NewResponse(413)
	r.Close = true
	out := string(r.Build(nil))
	assert.Contains(t, out, "Connection: close\r\n")
	assert.Contains(t, out, "413 Payload Too Large")
}
