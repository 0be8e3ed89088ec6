// Package httpwire implements the headers half of the request parser
// (spec.md §4.2's reading-headers state) and the response serializer
// (spec.md §4.4's wire format). Body framing (sized/chunked) is driven
// by the engine's per-client state machine in internal/engine, which
// streams body bytes straight to a spool rather than holding them in
// this package's buffer.
//
// The scanning technique — find a separator with bytes.IndexByte,
// advance a cursor, never copy until a field is known-complete — is
// grounded on the teacher's zero-copy parser
// (server/protocol/parser.go). Unlike the teacher, parsed fields are
// copied out of the connection buffer once found: spec.md §4.2
// requires that buffer bytes already transferred to disk be erased,
// so nothing downstream may hold a view into a buffer this package
// does not own past the call that produced it.
package httpwire

import (
	"bytes"
	"strconv"
	"strings"
)

// Header is one parsed header field.
type Header struct {
	Key, Val string
}

// Head is the parsed request line and header block.
type Head struct {
	Method string
	URI    string
	Proto  string
	Headers []Header

	ContentLength    int64
	HasContentLength bool
	Chunked          bool
	Expect100        bool

	// Consumed is the number of bytes of the input buffer occupied by
	// the header block, including the terminating blank line.
	Consumed int
}

// Get returns the first header value matching key, case-insensitively,
// or "" if absent.
func (h *Head) Get(key string) string {
	for _, f := range h.Headers {
		if strings.EqualFold(f.Key, key) {
			return f.Val
		}
	}
	return ""
}

// ParseHead scans buf for a complete header block terminated by
// "\r\n\r\n" (falling back to "\n\n", as spec.md §4.2 tolerates) and,
// if found, parses the request line and header fields. It returns
// ErrIncomplete if the header block is not yet fully buffered, and
// ErrMalformed if the request line or a header line cannot be parsed.
func ParseHead(buf []byte) (*Head, error) {
	sepLen, end := findHeaderEnd(buf)
	if end == -1 {
		return nil, ErrIncomplete
	}
	headerBlock := buf[:end]

	h := &Head{Consumed: end + sepLen}

	line, rest, err := firstLine(headerBlock)
	if err != nil {
		return nil, err
	}
	if err := parseRequestLine(h, line); err != nil {
		return nil, err
	}

	if err := parseHeaderLines(h, rest); err != nil {
		return nil, err
	}
	return h, nil
}

// findHeaderEnd returns the length of the terminating blank-line
// sequence and the offset where the header block ends (exclusive of
// that sequence), or (0, -1) if no terminator is present yet.
func findHeaderEnd(buf []byte) (sepLen int, end int) {
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i != -1 {
		return 4, i
	}
	if i := bytes.Index(buf, []byte("\n\n")); i != -1 {
		return 2, i
	}
	return 0, -1
}

func firstLine(block []byte) (line, rest []byte, err error) {
	if i := bytes.IndexByte(block, '\n'); i != -1 {
		l := block[:i]
		l = bytes.TrimSuffix(l, []byte("\r"))
		return l, block[i+1:], nil
	}
	return block, nil, nil
}

func parseRequestLine(h *Head, line []byte) error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 3 {
		return ErrMalformed
	}
	h.Method = string(parts[0])
	h.URI = string(parts[1])
	h.Proto = string(bytes.TrimSpace(parts[2]))
	if h.Method == "" || h.URI == "" {
		return ErrMalformed
	}
	return nil
}

func parseHeaderLines(h *Head, rest []byte) error {
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i != -1 {
			line = bytes.TrimSuffix(rest[:i], []byte("\r"))
			rest = rest[i+1:]
		} else {
			line = rest
			rest = nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return ErrMalformed
		}
		key := string(bytes.TrimSpace(line[:colon]))
		val := string(bytes.TrimSpace(line[colon+1:]))
		h.Headers = append(h.Headers, Header{Key: key, Val: val})

		switch {
		case strings.EqualFold(key, "Content-Length"):
			n, err := strconv.ParseInt(val, 10, 64)
			if err == nil && n >= 0 {
				h.ContentLength = n
				h.HasContentLength = true
			}
		case strings.EqualFold(key, "Transfer-Encoding"):
			if strings.Contains(strings.ToLower(val), "chunked") {
				h.Chunked = true
			}
		case strings.EqualFold(key, "Expect"):
			if strings.Contains(strings.ToLower(val), "100-continue") {
				h.Expect100 = true
			}
		}
	}
	return nil
}

// HasBody reports whether, per spec.md §4.2's edge rules, this request
// is expected to carry a body: GET/HEAD with no declared framing never
// do; POST/PUT/PATCH with no declared framing complete with an empty
// body (also no body to stream).
func (h *Head) HasBody() bool {
	return h.Chunked || h.HasContentLength && h.ContentLength > 0
}
