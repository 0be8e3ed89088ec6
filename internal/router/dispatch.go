package router

import (
	"sort"
	"strings"

	"github.com/hipoliciak/webserv/internal/config"
)

// Dispatch runs the full spec.md §4.3 algorithm: location selection,
// redirection, method check, body-size check, path resolution, and
// action selection. bodySize is the number of bytes already spooled
// for this request (0 for GET/HEAD/DELETE).
func Dispatch(server *config.Server, method, rawURI, contentType string, bodySize int64) Verdict {
	uriPath := stripQuery(rawURI)
	loc := SelectLocation(server, method, uriPath)

	if v, ok := checkRedirect(loc); ok {
		return v
	}

	isBlaEscape := loc.IsRegex && loc.CompatEscapeHatch && strings.HasSuffix(uriPath, ".bla") && method == "POST"
	if !isBlaEscape && !loc.AllowsMethod(method) {
		return errVerdict(405)
	}

	if max := loc.EffectiveMaxBodySize(server); max > 0 && bodySize > max {
		return errVerdict(413)
	}

	resolved := ResolvePath(server, loc, uriPath)
	if IsTraversal(resolved) {
		return errVerdict(403)
	}

	ext := extensionOf(resolved)
	interpreter := cgiInterpreterFor(server, loc, ext)

	switch method {
	case "GET", "HEAD":
		if interpreter != "" {
			return Verdict{Action: ActionCGI, Location: loc, FilePath: resolved}
		}
		return Verdict{Action: ActionStatic, Location: loc, FilePath: resolved}

	case "POST":
		if strings.Contains(contentType, "multipart/form-data") {
			return Verdict{Action: ActionMultipartUpload, Location: loc, FilePath: resolved}
		}
		if strings.Contains(contentType, "application/json") {
			return Verdict{Action: ActionJSONUpload, Location: loc, FilePath: resolved}
		}
		if interpreter != "" || isBlaEscape {
			return Verdict{Action: ActionCGI, Location: loc, FilePath: resolved}
		}
		if loc.UploadPath != "" {
			return Verdict{Action: ActionSingleUpload, Location: loc, FilePath: resolved}
		}
		return Verdict{Action: ActionStatic, Location: loc, FilePath: resolved}

	case "PUT":
		return Verdict{Action: ActionPut, Location: loc, FilePath: resolved}

	case "DELETE":
		return Verdict{Action: ActionDelete, Location: loc, FilePath: resolved}
	}

	return errVerdict(405)
}

// checkRedirect implements spec.md §4.3 step 2: emit the lowest
// configured redirect status code when the location's redirection map
// is non-empty.
func checkRedirect(loc *config.Location) (Verdict, bool) {
	if len(loc.Redirections) == 0 {
		return Verdict{}, false
	}
	codes := make([]int, 0, len(loc.Redirections))
	for code := range loc.Redirections {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	lowest := codes[0]
	return Verdict{
		Action:     ActionRedirect,
		Location:   loc,
		StatusCode: lowest,
		RedirectTo: loc.Redirections[lowest],
	}, true
}

func cgiInterpreterFor(server *config.Server, loc *config.Location, ext string) string {
	if loc.CGIPath != "" && loc.CGIExtension != "" && ext == loc.CGIExtension {
		return loc.CGIPath
	}
	if interp, ok := server.CGIExtensions[ext]; ok {
		return interp
	}
	return ""
}

func extensionOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if i <= slash {
		return ""
	}
	return path[i:]
}

func stripQuery(uri string) string {
	if i := strings.IndexByte(uri, '?'); i != -1 {
		return uri[:i]
	}
	return uri
}
