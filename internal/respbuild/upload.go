package respbuild

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hipoliciak/webserv/internal/config"
	"github.com/hipoliciak/webserv/internal/httpwire"
)

// MultipartUpload implements spec.md §4.4's multipart branch: extract
// the boundary from contentType, walk each part, and for parts
// carrying a filename, sanitize it to its basename, resolve name
// collisions by appending "_<n>" before the extension, and write it
// into uploadDir (created 0755 if absent).
//
// The original hand-split the body on "--<boundary>" itself
// (Server.cpp::handleFileUpload); this uses the standard library's
// mime/multipart reader instead, since no repository in the pack
// ships a third-party multipart parser and mime/multipart is the
// canonical way to do this in Go.
func MultipartUpload(body io.Reader, contentType, uploadDir string) (*httpwire.Response, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["boundary"] == "" {
		return httpwire.NewResponse(400), nil
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}

	mr := multipart.NewReader(body, params["boundary"])
	saved := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		filename := part.FileName()
		if filename != "" {
			if err := saveUploadedPart(part, filename, uploadDir); err != nil {
				part.Close()
				return nil, err
			}
			saved++
		}
		part.Close()
	}

	resp := httpwire.NewResponse(200)
	resp.Set("Content-Type", "text/html")
	resp.SetBody([]byte("<html><body><h1>File Upload Successful</h1><p>Your file(s) have been uploaded successfully.</p></body></html>"))
	_ = saved
	return resp, nil
}

func saveUploadedPart(r io.Reader, filename, uploadDir string) error {
	finalPath := uniquePath(uploadDir, filepath.Base(filename))
	f, err := os.OpenFile(finalPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// uniquePath implements saveUploadedFile's collision resolution:
// "name_1.ext", "name_2.ext", ... when "name.ext" already exists.
func uniquePath(dir, name string) string {
	full := filepath.Join(dir, name)
	if _, err := os.Stat(full); err != nil {
		return full
	}
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// SingleUpload implements the POST-to-location-with-uploadPath branch
// of spec.md §4.3 step 6: the filename is derived from the URI tail,
// or a timestamp if the URI has none, and the spool is moved (not
// copied) into the upload directory.
func SingleUpload(spoolPath, uploadDir, uriTail string) (*httpwire.Response, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}
	name := filepath.Base(uriTail)
	if name == "" || name == "/" || name == "." {
		name = fmt.Sprintf("upload_%d", time.Now().UnixNano())
	}
	dest := uniquePath(uploadDir, name)

	if err := os.Rename(spoolPath, dest); err != nil {
		// cross-device rename falls back to copy+remove.
		if err := copyFile(spoolPath, dest); err != nil {
			return nil, err
		}
		os.Remove(spoolPath)
	}

	resp := httpwire.NewResponse(201)
	resp.Set("Content-Type", "text/plain")
	resp.Set("Location", "/"+filepath.Base(dest))
	resp.SetBody([]byte("File created successfully\n"))
	return resp, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// JSONUpload implements spec.md §4.3 step 6's application/json branch:
// write the body to a path derived from the URI (appending ".json",
// or a timestamp-named file if posting to a directory), returning 201
// with Location.
func JSONUpload(spoolPath string, server *config.Server, resolvedPath, uriPath string) (*httpwire.Response, error) {
	raw, err := os.ReadFile(spoolPath)
	if err != nil {
		return nil, err
	}
	if !jsoniter.Valid(raw) {
		return httpwire.NewResponse(400), nil
	}

	dest := resolvedPath
	if info, err := os.Stat(resolvedPath); err == nil && info.IsDir() || uriPath == "/" {
		dest = filepath.Join(resolvedPath, strconv.FormatInt(time.Now().UnixNano(), 10)+".json")
	} else if filepath.Ext(dest) != ".json" {
		dest += ".json"
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(spoolPath, dest); err != nil {
		if err := copyFile(spoolPath, dest); err != nil {
			return nil, err
		}
		os.Remove(spoolPath)
	}

	resp := httpwire.NewResponse(201)
	resp.Set("Content-Type", "application/json")
	resp.Set("Location", "/"+filepath.Base(dest))
	resp.SetBody([]byte(`{"status":"created"}`))
	return resp, nil
}
