package httpwire

import (
	"fmt"
	"time"
)

// statusText mirrors HttpResponse::getStatusMessage; kept as a map
// rather than the teacher's fixed-size array of []byte (builder.go's
// statusTable) because this server's status codes span a much smaller,
// sparser set and a map reads more clearly than an array sized [505].
var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Payload Too Large",
	414: "URI Too Long",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// StatusText returns the reason phrase for code, or "Unknown" for an
// unrecognized code.
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return "Unknown"
}

// Response is a builder for the bytes written back to a client.
// Headers are emitted in insertion order; NewResponse seeds Server and
// Date first, so they lead the header block, matching the wire
// protocol's required header set (spec.md §6).
type Response struct {
	Code    int
	Headers []Header
	Body    []byte
	Close   bool // Connection: close rather than keep-alive
}

// NewResponse starts a response with the standard Date/Server headers
// already set.
func NewResponse(code int) *Response {
	return &Response{
		Code: code,
		Headers: []Header{
			{Key: "Server", Val: "webserv/1.0"},
			{Key: "Date", Val: time.Now().UTC().Format(http1Date)},
		},
	}
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"

// Set overwrites (or appends) a header.
func (r *Response) Set(key, val string) {
	for i := range r.Headers {
		if r.Headers[i].Key == key {
			r.Headers[i].Val = val
			return
		}
	}
	r.Headers = append(r.Headers, Header{Key: key, Val: val})
}

// SetBody sets the body and its Content-Length header.
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.Set("Content-Length", fmt.Sprintf("%d", len(body)))
}

// Build serializes the response into the wire format described by
// spec.md §6, appending to dst and returning the extended slice. This
// mirrors the teacher's BuildResp (server/protocol/builder.go) but
// works over a map-free ordered header slice and appends rather than
// writing into a caller-sized buffer, since responses here are framed
// by a full Content-Length computed up front rather than streamed.
func (r *Response) Build(dst []byte) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = append(dst, fmt.Sprintf("%d %s", r.Code, StatusText(r.Code))...)
	dst = append(dst, "\r\n"...)

	if r.Close {
		r.Set("Connection", "close")
	} else if r.headerMissing("Connection") {
		r.Set("Connection", "keep-alive")
	}

	for _, h := range r.Headers {
		dst = append(dst, h.Key...)
		dst = append(dst, ": "...)
		dst = append(dst, h.Val...)
		dst = append(dst, "\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	dst = append(dst, r.Body...)
	return dst
}

func (r *Response) headerMissing(key string) bool {
	for _, h := range r.Headers {
		if h.Key == key {
			return false
		}
	}
	return true
}
