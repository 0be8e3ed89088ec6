package respbuild

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/hipoliciak/webserv/internal/httpwire"
)

// DirectoryListing builds the autoindex page for dirPath, whose URL is
// urlPath, per spec.md §4.4: directories sorted first, then files,
// each lexicographically, files annotated with size and mtime, a
// parent link present unless urlPath is "/".
func DirectoryListing(dirPath, urlPath string) (*httpwire.Response, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var dirs, files []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html><head><title>Index of %s</title></head>\n", urlPath)
	fmt.Fprintf(&b, "<body><h1>Index of %s</h1>\n<hr><pre>\n", urlPath)

	if urlPath != "/" {
		fmt.Fprintf(&b, "<a href=\"%s\">../</a>\n", parentOf(urlPath))
	}

	for _, d := range dirs {
		href := joinURL(urlPath, d.Name()) + "/"
		fmt.Fprintf(&b, "<a href=\"%s\">%s/</a>\n", href, d.Name())
	}
	for _, f := range files {
		href := joinURL(urlPath, f.Name())
		line := fmt.Sprintf("<a href=\"%s\">%s</a>", href, f.Name())
		if info, err := f.Info(); err == nil {
			line += fmt.Sprintf("    %s    %s bytes", info.ModTime().Format("02-Jan-2006 15:04"), strconv.FormatInt(info.Size(), 10))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("</pre><hr></body></html>\n")

	resp := httpwire.NewResponse(200)
	resp.Set("Content-Type", "text/html")
	resp.SetBody([]byte(b.String()))
	return resp, nil
}

func parentOf(urlPath string) string {
	trimmed := strings.TrimSuffix(urlPath, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i != -1 {
		return trimmed[:i+1]
	}
	return "/"
}

func joinURL(urlPath, name string) string {
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	return path.Join(urlPath, name)
}
