// Package spool implements the on-disk scratch file that holds one
// request body while it is being received, routed, and dispatched.
//
// Ownership is exactly as described in the data model: at any instant
// exactly one in-memory object references a Spool, and that object
// must call Close (or Take and then Close on whatever it hands the
// Spool to) before it is destroyed. A Spool unlinks its backing file
// on Close unless Take has transferred it to a new owner first, in the
// spirit of the teacher's fd-ownership idiom (own the resource, release
// it on every exit path) generalized from a raw fd to a named temp file.
package spool

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var (
	counter    atomic.Uint64
	startEpoch = time.Now().Unix()
)

// Dir is the directory new spool files are created in. It defaults to
// os.TempDir; no configuration directive changes it.
var Dir = os.TempDir()

// Spool is a single request body scratch file, writable while a
// request is being received and then readable by whichever handler
// consumes it.
type Spool struct {
	path string
	file *os.File
	size int64

	taken bool
}

// New creates a fresh spool file named webserv_body_<pid>_<epoch>_<n>.
func New() (*Spool, error) {
	n := counter.Add(1)
	path := fmt.Sprintf("%s/webserv_body_%d_%d_%d", Dir, os.Getpid(), startEpoch, n)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	return &Spool{path: path, file: f}, nil
}

// Write appends bytes to the spool, as the parser streams a request
// body in. It never holds more than one chunk in memory.
func (s *Spool) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	s.size += int64(n)
	return n, err
}

// Size reports the number of bytes written so far.
func (s *Spool) Size() int64 { return s.size }

// Path returns the backing file's path, used by handlers that need a
// filesystem path rather than an open handle (e.g. moving the spool
// into an upload directory).
func (s *Spool) Path() string { return s.path }

// Reader seeks to the start of the spool and returns a handle for
// streaming reads. The returned *os.File shares the spool's
// descriptor; callers must not close it directly — use Close on the
// Spool once done.
func (s *Spool) Reader() (*os.File, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return s.file, nil
}

// Take transfers ownership to the caller: the Spool will not unlink
// its file on Close. The caller becomes responsible for removing the
// path once it is done with it (e.g. after moving the file into an
// upload directory, or after CGI output has been fully drained).
func (s *Spool) Take() *Spool {
	s.taken = true
	return s
}

// Close releases the spool's file descriptor and, unless Take was
// called, deletes the backing file. Close is idempotent.
func (s *Spool) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if !s.taken {
		if rmErr := os.Remove(s.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}
