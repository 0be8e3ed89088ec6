package engine

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/hipoliciak/webserv/internal/cgi"
	"github.com/hipoliciak/webserv/internal/httpwire"
	"github.com/hipoliciak/webserv/internal/respbuild"
	"github.com/hipoliciak/webserv/internal/router"
	"github.com/hipoliciak/webserv/internal/spool"
)

// dispatch implements spec.md §4.3's request-complete step: run the
// router against the parsed head and spooled body, then translate the
// resulting Verdict into either an immediate response or a pending CGI
// job. When a CGI job is started or parked behind the concurrency cap
// it returns (nil, true, nil); the caller must leave the session alone
// until the CGI completion handler in cgiio.go builds its response.
func (l *Loop) dispatch(s *Session) (resp *httpwire.Response, cgiPending bool, err error) {
	if s.BodyRejected {
		resp := respbuild.ErrorPage(s.Server, 413)
		resp.Close = true
		return resp, false, nil
	}

	contentType := s.Head.Get("Content-Type")
	bodySize := s.BodySize()

	v := router.Dispatch(s.Server, s.Head.Method, s.Head.URI, contentType, bodySize)

	switch v.Action {
	case router.ActionError:
		resp := respbuild.ErrorPage(s.Server, v.StatusCode)
		if v.StatusCode == 413 {
			// Framing/policy errors that exceed the body cap are closed
			// rather than kept alive, per spec.md §4.1 step 6.
			resp.Close = true
		}
		return resp, false, nil

	case router.ActionRedirect:
		resp := httpwire.NewResponse(v.StatusCode)
		resp.Set("Location", v.RedirectTo)
		resp.SetBody(nil)
		return resp, false, nil

	case router.ActionStatic:
		return l.dispatchStatic(s, v)

	case router.ActionDirectory:
		listing, lerr := respbuild.DirectoryListing(v.FilePath, s.Head.URI)
		if lerr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		return listing, false, nil

	case router.ActionCGI:
		pending, serr := l.startCGI(s, v)
		if serr != nil {
			return respbuild.ErrorPage(s.Server, 502), false, nil
		}
		return nil, pending, nil

	case router.ActionMultipartUpload:
		var r io.Reader = bytes.NewReader(nil)
		if s.BodySpool != nil {
			rr, rerr := s.BodySpool.Reader()
			if rerr != nil {
				return respbuild.ErrorPage(s.Server, 500), false, nil
			}
			r = rr
		}
		resp, uerr := respbuild.MultipartUpload(r, contentType, v.Location.UploadPath)
		if uerr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		return resp, false, nil

	case router.ActionJSONUpload:
		path, perr := s.takeBodySpoolPath()
		if perr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		resp, uerr := respbuild.JSONUpload(path, s.Server, v.FilePath, s.Head.URI)
		if uerr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		return resp, false, nil

	case router.ActionSingleUpload:
		path, perr := s.takeBodySpoolPath()
		if perr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		resp, uerr := respbuild.SingleUpload(path, v.Location.UploadPath, s.Head.URI)
		if uerr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		return resp, false, nil

	case router.ActionPut:
		return l.dispatchPut(s, v)

	case router.ActionDelete:
		return l.dispatchDelete(s, v)
	}

	return respbuild.ErrorPage(s.Server, 500), false, nil
}

// takeBodySpoolPath hands the caller a filesystem path to the request
// body, creating an empty spool first when the request carried no body
// at all (e.g. an empty-bodied POST to an upload location), since
// BodySpool is only opened once a declared body is known to exist.
func (s *Session) takeBodySpoolPath() (string, error) {
	if s.BodySpool == nil {
		sp, err := spool.New()
		if err != nil {
			return "", err
		}
		s.BodySpool = sp
	}
	return s.BodySpool.Take().Path(), nil
}

// dispatchStatic handles the GET/HEAD branch: a regular file is served
// as-is, a directory either autoindexes or 403s, per spec.md §4.4.
func (l *Loop) dispatchStatic(s *Session, v router.Verdict) (*httpwire.Response, bool, error) {
	info, err := os.Stat(v.FilePath)
	if err != nil {
		return respbuild.ErrorPage(s.Server, 404), false, nil
	}
	if info.IsDir() {
		if !v.Location.Autoindex {
			return respbuild.ErrorPage(s.Server, 403), false, nil
		}
		listing, lerr := respbuild.DirectoryListing(v.FilePath, s.Head.URI)
		if lerr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		return listing, false, nil
	}
	headOnly := s.Head.Method == "HEAD"
	if !headOnly && info.Size() > respbuild.StaticFileThreshold {
		f, ferr := os.Open(v.FilePath)
		if ferr != nil {
			return respbuild.ErrorPage(s.Server, 500), false, nil
		}
		s.StreamFile = f
		s.StreamRemaining = info.Size()
		return respbuild.StaticFileHeaders(v.FilePath, info.Size()), false, nil
	}
	return respbuild.StaticFile(s.Server, v.FilePath, headOnly), false, nil
}

func (l *Loop) dispatchPut(s *Session, v router.Verdict) (*httpwire.Response, bool, error) {
	if err := os.MkdirAll(filepath.Dir(v.FilePath), 0o755); err != nil {
		return respbuild.ErrorPage(s.Server, 500), false, nil
	}
	existed := false
	if _, err := os.Stat(v.FilePath); err == nil {
		existed = true
	}

	var err error
	if s.BodySpool != nil {
		err = os.Rename(s.BodySpool.Take().Path(), v.FilePath)
	} else {
		_, err = os.Create(v.FilePath)
	}
	if err != nil {
		return respbuild.ErrorPage(s.Server, 500), false, nil
	}

	code := 201
	if existed {
		code = 200
	}
	resp := httpwire.NewResponse(code)
	resp.Set("Content-Type", "text/plain")
	resp.SetBody([]byte("OK\n"))
	return resp, false, nil
}

func (l *Loop) dispatchDelete(s *Session, v router.Verdict) (*httpwire.Response, bool, error) {
	info, err := os.Stat(v.FilePath)
	if err != nil {
		return respbuild.ErrorPage(s.Server, 404), false, nil
	}
	if info.IsDir() {
		return respbuild.ErrorPage(s.Server, 403), false, nil
	}
	if err := os.Remove(v.FilePath); err != nil {
		return respbuild.ErrorPage(s.Server, 500), false, nil
	}
	resp := httpwire.NewResponse(204)
	resp.SetBody(nil)
	return resp, false, nil
}

// startCGI implements spec.md §4.5: build the RFC 3875 environment,
// fork the interpreter against the script, and either admit it into
// the running set immediately or park it in the FIFO queue once
// MAX_CONCURRENT_CGI_PROCESSES jobs are already running.
func (l *Loop) startCGI(s *Session, v router.Verdict) (pending bool, err error) {
	ext := filepath.Ext(v.FilePath)
	interpreter := ""
	if v.Location.CGIPath != "" && v.Location.CGIExtension == ext {
		interpreter = v.Location.CGIPath
	} else {
		interpreter = s.Server.CGIExtensions[ext]
	}

	// SCRIPT_FILENAME must be absolute per spec.md §6; the script is
	// also exec'd by this same path with cmd.Dir set to its directory,
	// so resolving once here keeps both uses consistent.
	absScript, aerr := filepath.Abs(v.FilePath)
	if aerr != nil {
		return false, aerr
	}

	env := cgi.BuildEnv(cgi.EnvRequest{
		Method:      s.Head.Method,
		URI:         s.Head.URI,
		Proto:       s.Head.Proto,
		Headers:     append([]httpwire.Header(nil), s.Head.Headers...),
		ContentType: s.Head.Get("Content-Type"),
		BodyLen:     s.BodySize(),
	}, s.Server.ServerName, s.Server.Port, absScript, filepath.Base(absScript), "")

	if l.cgiQueue.Len() >= cgi.MaxConcurrent {
		l.cgiQueue.Enqueue(s.Fd, interpreter, absScript, env)
		return true, nil
	}

	job, jerr := cgi.Start(interpreter, absScript, env, s.Server.CGITimeout, s.BodySpool)
	if jerr != nil {
		return false, jerr
	}
	job.ClientFd = s.Fd
	s.CGIJob = job
	l.cgiQueue.TryAdmit(s.Fd, job)
	l.registerCGIFds(job)
	return true, nil
}
