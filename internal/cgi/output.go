package cgi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/hipoliciak/webserv/internal/httpwire"
)

// ParseOutput splits a finished CGI script's stdout into its CGI
// header block and body, per RFC 3875 §6.3: headers end at the first
// blank line, "Status:" sets the response code (default 200) and
// "Content-Type:" is passed through; everything else is forwarded as
// a response header.
func ParseOutput(raw []byte) *httpwire.Response {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	sepLen := 4
	if idx == -1 {
		sep = []byte("\n\n")
		idx = bytes.Index(raw, sep)
		sepLen = 2
	}

	resp := httpwire.NewResponse(200)
	if idx == -1 {
		// No header block at all: the entire output is the body with
		// status 200 and Content-Type text/plain.
		resp.Set("Content-Type", "text/plain")
		resp.SetBody(raw)
		return resp
	}

	headerBlock := string(raw[:idx])
	body := raw[idx+sepLen:]

	code := 200
	hasContentType := false
	for _, line := range strings.Split(headerBlock, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if strings.EqualFold(key, "Status") {
			if n, err := strconv.Atoi(strings.Fields(val)[0]); err == nil {
				code = n
			}
			continue
		}
		if strings.EqualFold(key, "Content-Type") {
			hasContentType = true
		}
		resp.Set(key, val)
	}

	resp.Code = code
	if !hasContentType {
		resp.Set("Content-Type", "text/html")
	}
	resp.SetBody(body)
	return resp
}
