package cgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipoliciak/webserv/internal/httpwire"
)

func TestParseOutputWithStatusAndContentType(t *testing.T) {
	raw := []byte("Status: 201 Created\r\nContent-Type: application/json\r\n\r\n{\"ok\":true}")
	resp := ParseOutput(raw)
	require.Equal(t, 201, resp.Code)
	assert.Equal(t, "{\"ok\":true}", string(resp.Body))

	found := false
	for _, h := range resp.Headers {
		if h.Key == "Content-Type" {
			found = true
			assert.Equal(t, "application/json", h.Val)
		}
	}
	assert.True(t, found)
}

func TestParseOutputDefaultsStatusAndContentType(t *testing.T) {
	raw := []byte("X-Custom: yes\n\nhello world")
	resp := ParseOutput(raw)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "hello world", string(resp.Body))

	var contentType string
	for _, h := range resp.Headers {
		if h.Key == "Content-Type" {
			contentType = h.Val
		}
	}
	assert.Equal(t, "text/html", contentType)
}

func TestParseOutputNoHeaderBlock(t *testing.T) {
	raw := []byte("just raw bytes, no headers at all")
	resp := ParseOutput(raw)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, raw, resp.Body)
}

func TestBuildEnvIncludesRequiredVarsAndHeaders(t *testing.T) {
	req := EnvRequest{
		Method:      "GET",
		URI:         "/cgi-bin/hello.py?name=world",
		Proto:       "HTTP/1.1",
		ContentType: "text/plain",
		BodyLen:     0,
		Headers:     []httpwire.Header{{Key: "X-Request-Id", Val: "abc123"}},
	}
	env := BuildEnv(req, "localhost", 8080, "/var/www/cgi-bin/hello.py", "hello.py", "")

	assertHasPrefix(t, env, "QUERY_STRING=name=world")
	assertHasPrefix(t, env, "REQUEST_METHOD=GET")
	assertHasPrefix(t, env, "SERVER_PORT=8080")
	assertHasPrefix(t, env, "GATEWAY_INTERFACE=CGI/1.1")
	assertHasPrefix(t, env, "HTTP_X_REQUEST_ID=abc123")
}

func assertHasPrefix(t *testing.T, env []string, want string) {
	t.Helper()
	for _, e := range env {
		if e == want {
			return
		}
	}
	t.Fatalf("expected env to contain %q, got %v", want, env)
}

func TestQueueAdmitsUpToCapThenParks(t *testing.T) {
	q := NewQueue()
	for i := 0; i < MaxConcurrent; i++ {
		ok := q.TryAdmit(i, &Job{ClientFd: i})
		require.True(t, ok)
	}
	assert.False(t, q.TryAdmit(99, &Job{ClientFd: 99}))

	q.Enqueue(99, "", "/script.py", nil)
	assert.Equal(t, 1, q.Waiting())

	q.Release(0)
	clientFd, _, scriptPath, _, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, 99, clientFd)
	assert.Equal(t, "/script.py", scriptPath)
}
