// Package cgi implements the subset of RFC 3875 this server needs:
// spawning an interpreter against a script, feeding it the request body
// on stdin, and turning its stdout back into an HTTP response. Execution
// is non-blocking: Start returns as soon as the child is forked, and the
// engine drives the pipes from its own event loop rather than blocking
// on read()/write() the way CGI.cpp::execute did.
package cgi

import (
	"strconv"
	"strings"

	"github.com/hipoliciak/webserv/internal/httpwire"
)

// EnvRequest carries the subset of a parsed request that BuildEnv needs,
// decoupled from httpwire.Head so the CGI package doesn't need to import
// the engine's session state.
type EnvRequest struct {
	Method      string
	URI         string
	Proto       string
	Headers     []httpwire.Header
	ContentType string
	BodyLen     int64
}

// BuildEnv mirrors CGI::setupEnvironment: the RFC 3875 required
// variables plus one HTTP_<NAME> per request header, uppercased with
// dashes turned into underscores.
func BuildEnv(req EnvRequest, serverName string, serverPort int, scriptPath, scriptName, pathInfo string) []string {
	query := ""
	if i := strings.IndexByte(req.URI, '?'); i != -1 {
		query = req.URI[i+1:]
	}

	env := []string{
		"REQUEST_METHOD=" + req.Method,
		"REQUEST_URI=" + req.URI,
		"QUERY_STRING=" + query,
		"CONTENT_TYPE=" + req.ContentType,
		"CONTENT_LENGTH=" + strconv.FormatInt(req.BodyLen, 10),
		"SERVER_NAME=" + serverName,
		"SERVER_PORT=" + strconv.Itoa(serverPort),
		"SERVER_PROTOCOL=" + req.Proto,
		"GATEWAY_INTERFACE=CGI/1.1",
		"SCRIPT_NAME=" + scriptName,
		"SCRIPT_FILENAME=" + scriptPath,
		"PATH_INFO=" + pathInfo,
		"PATH_TRANSLATED=",
		"REMOTE_ADDR=127.0.0.1",
		"REMOTE_HOST=",
		"AUTH_TYPE=",
		"REMOTE_USER=",
		"REMOTE_IDENT=",
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"SERVER_SOFTWARE=webserv/1.0",
		"REDIRECT_STATUS=200",
	}

	for _, h := range req.Headers {
		name := "HTTP_" + strings.ToUpper(strings.ReplaceAll(h.Key, "-", "_"))
		env = append(env, name+"="+h.Val)
	}

	return env
}
