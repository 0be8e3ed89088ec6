package engine

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(raw string) *Session {
	s := NewSession(0, nil)
	s.Buf = append(s.Buf[:0], []byte(raw)...)
	s.Offset = len(raw)
	return s
}

func TestAdvanceIncompleteHead(t *testing.T) {
	l := &Loop{}
	s := newTestSession("GET / HTTP/1.1\r\nHost: x")
	ready, err := l.advance(s)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestAdvanceNoBodyRequest(t *testing.T) {
	l := &Loop{}
	s := newTestSession("GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	ready, err := l.advance(s)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, "GET", s.Head.Method)
	assert.Nil(t, s.BodySpool)
}

func TestAdvanceSizedBody(t *testing.T) {
	l := &Loop{}
	raw := "POST /upload HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	s := newTestSession(raw)
	ready, err := l.advance(s)
	require.NoError(t, err)
	require.True(t, ready)
	require.NotNil(t, s.BodySpool)
	defer s.BodySpool.Close()

	assert.EqualValues(t, 5, s.BodySize())
	r, err := s.BodySpool.Reader()
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestAdvanceSizedBodyAcrossTwoReads(t *testing.T) {
	l := &Loop{}
	head := "POST /upload HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"
	s := newTestSession(head)
	ready, err := l.advance(s)
	require.NoError(t, err)
	require.False(t, ready)
	require.NotNil(t, s.BodySpool)
	defer s.BodySpool.Close()

	s.Buf = append(s.Buf[:s.Offset], []byte("lo")...)
	s.Offset = len(s.Buf)
	ready, err = l.advance(s)
	require.NoError(t, err)
	require.True(t, ready)

	r, err := s.BodySpool.Reader()
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestAdvanceChunkedBody(t *testing.T) {
	l := &Loop{}
	raw := "POST /upload HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n" +
		"6\r\n world\r\n" +
		"0\r\n\r\n"
	s := newTestSession(raw)
	ready, err := l.advance(s)
	require.NoError(t, err)
	require.True(t, ready)
	defer s.BodySpool.Close()

	r, err := s.BodySpool.Reader()
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestKeepAliveRequestedDefaultsByProtocol(t *testing.T) {
	s := newTestSession("GET / HTTP/1.1\r\n\r\n")
	l := &Loop{}
	_, _ = l.advance(s)
	assert.True(t, keepAliveRequested(s))

	s2 := newTestSession("GET / HTTP/1.0\r\n\r\n")
	_, _ = l.advance(s2)
	assert.False(t, keepAliveRequested(s2))
}

func TestKeepAliveRequestedHonoursConnectionHeader(t *testing.T) {
	s := newTestSession("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	l := &Loop{}
	_, _ = l.advance(s)
	assert.False(t, keepAliveRequested(s))
}

func TestParseIPv4(t *testing.T) {
	addr, err := parseIPv4("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, addr)

	addr, err = parseIPv4("0.0.0.0")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0, 0, 0, 0}, addr)

	_, err = parseIPv4("not-an-ip")
	assert.Error(t, err)
}

func TestContainsFoldCaseInsensitive(t *testing.T) {
	assert.True(t, containsFold("Keep-Alive, Close", "CLOSE"))
	assert.False(t, containsFold("keep-alive", "close"))
}
