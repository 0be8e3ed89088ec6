package respbuild

import (
	"fmt"
	"os"

	"github.com/hipoliciak/webserv/internal/config"
	"github.com/hipoliciak/webserv/internal/httpwire"
)

// errorMessages mirrors HttpResponse::createErrorResponse's per-code
// short descriptions.
var errorMessages = map[int]string{
	413: "The request payload is too large.",
	404: "The requested resource could not be found.",
	403: "Access to this resource is forbidden.",
	405: "The request method is not allowed for this resource.",
	500: "An internal server error occurred.",
	501: "This method is not implemented.",
	502: "The upstream CGI process failed.",
	504: "The upstream CGI process timed out.",
}

// ErrorPage builds the response for a given status code, using the
// server's configured error-page file if one exists for that code,
// otherwise a canonical built-in HTML stub (spec.md §4.4, §7).
func ErrorPage(server *config.Server, code int) *httpwire.Response {
	resp := httpwire.NewResponse(code)
	resp.Set("Content-Type", "text/html")

	if server != nil {
		if path, ok := server.ErrorPages[code]; ok {
			if body, err := os.ReadFile(path); err == nil {
				resp.SetBody(body)
				return resp
			}
		}
	}

	resp.SetBody([]byte(builtinErrorPage(code)))
	return resp
}

func builtinErrorPage(code int) string {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "An error occurred."
	}
	title := fmt.Sprintf("%d %s", code, httpwire.StatusText(code))
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
</head>
<body>
    <h1>%s</h1>
    <p>%s</p>
    <hr>
    <small>webserv/1.0</small>
</body>
</html>
`, title, title, msg)
}
