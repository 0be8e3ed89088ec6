// Package respbuild constructs HTTP responses for the static-file,
// directory-listing, error, and upload branches of spec.md §4.4. CGI
// output parsing lives in internal/cgi since it is driven by the CGI
// engine's own completion handling, not the generic response builder.
package respbuild

import "strings"

// mimeTypes mirrors HttpResponse::getMimeType's extension table.
var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
}

// MimeType resolves a filesystem path's extension to a Content-Type,
// defaulting to application/octet-stream for unknown extensions.
func MimeType(path string) string {
	ext := strings.ToLower(extOf(path))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return "application/octet-stream"
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if i <= slash {
		return ""
	}
	return path[i:]
}
