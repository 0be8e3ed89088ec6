package router

import (
	"testing"

	"github.com/hipoliciak/webserv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *config.Server {
	return &config.Server{
		Root:           "www",
		Index:          "index.html",
		MaxBodySize:    100,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		CGIExtensions:  map[string]string{".py": "/usr/bin/python3"},
		Locations: []*config.Location{
			{Path: "/uploads", UploadPath: "uploads", AllowedMethods: []string{"GET", "POST"}, Redirections: map[int]string{}},
			{IsRegex: true, Path: ".bla", CompatEscapeHatch: true, Redirections: map[int]string{}},
		},
	}
}

func TestSelectLocationLongestPrefix(t *testing.T) {
	s := testServer()
	loc := SelectLocation(s, "GET", "/uploads/x.txt")
	require.NotNil(t, loc)
	assert.Equal(t, "/uploads", loc.Path)
}

func TestSelectLocationSynthesizedDefault(t *testing.T) {
	s := testServer()
	loc := SelectLocation(s, "GET", "/other")
	require.NotNil(t, loc)
	assert.Equal(t, "www", loc.Root)
}

func TestBlaEscapeHatchBypassesMethodCheck(t *testing.T) {
	s := testServer()
	s.AllowedMethods = []string{"GET"}
	v := Dispatch(s, "POST", "/script.bla", "text/plain", 10<<20)
	assert.Equal(t, ActionCGI, v.Action)
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer()
	v := Dispatch(s, "PATCH", "/index.html", "", 0)
	assert.Equal(t, ActionError, v.Action)
	assert.Equal(t, 405, v.StatusCode)
}

func TestBodyTooLarge(t *testing.T) {
	s := testServer()
	v := Dispatch(s, "POST", "/uploads/a.txt", "text/plain", 101)
	assert.Equal(t, ActionError, v.Action)
	assert.Equal(t, 413, v.StatusCode)
}

func TestBodyAtLimitSucceeds(t *testing.T) {
	s := testServer()
	v := Dispatch(s, "POST", "/uploads/a.txt", "text/plain", 100)
	assert.NotEqual(t, 413, v.StatusCode)
}

func TestTraversalRejected(t *testing.T) {
	s := testServer()
	v := Dispatch(s, "GET", "/../../etc/passwd", "", 0)
	assert.Equal(t, ActionError, v.Action)
	assert.Equal(t, 403, v.StatusCode)
}

func TestCGIDispatchByExtension(t *testing.T) {
	s := testServer()
	v := Dispatch(s, "GET", "/cgi-bin/hello.py", "", 0)
	assert.Equal(t, ActionCGI, v.Action)
	assert.Equal(t, "www/cgi-bin/hello.py", v.FilePath)
}

func TestRedirectPicksLowestCode(t *testing.T) {
	s := testServer()
	s.Locations = append(s.Locations, &config.Location{
		Path:         "/old",
		Redirections: map[int]string{302: "/new2", 301: "/new"},
	})
	v := Dispatch(s, "GET", "/old/page", "", 0)
	assert.Equal(t, ActionRedirect, v.Action)
	assert.Equal(t, 301, v.StatusCode)
	assert.Equal(t, "/new", v.RedirectTo)
}
