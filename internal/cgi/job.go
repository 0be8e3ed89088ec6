package cgi

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/spool"
)

// Job tracks one running CGI child process. StdinFd and StdoutFd are
// the engine's window into the child: the event loop registers them
// with epoll directly rather than letting exec.Cmd's own goroutines
// push bytes around, so a slow or hung script never blocks the main
// loop (spec.md §4.5).
type Job struct {
	cmd *exec.Cmd

	stdinFile  *os.File
	stdoutFile *os.File

	StdinFd  int
	StdoutFd int

	StdinOpen  bool
	StdoutOpen bool

	InputSpool *spool.Spool // request body, read from and fed to stdin
	InputOff   int64

	Output []byte // accumulated raw CGI output, header block + body

	ClientFd int
	Started  time.Time
	Deadline time.Time

	Done    bool
	ExitErr error
}

// Start forks the interpreter (or the script itself when interpreter is
// empty) against scriptPath, with cwd set to the script's directory, as
// CGI::execute does. It returns immediately; the child's stdin/stdout
// pipes are left open and non-blocking for the caller to drive.
func Start(interpreter, scriptPath string, env []string, timeout time.Duration, inputSpool *spool.Spool) (*Job, error) {
	var cmd *exec.Cmd
	if interpreter == "" {
		cmd = exec.Command(scriptPath)
	} else {
		cmd = exec.Command(interpreter, scriptPath)
	}
	cmd.Env = env
	cmd.Dir = scriptDir(scriptPath)

	stdinW, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("cgi: stdin pipe: %w", err)
	}
	stdoutR, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cgi: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cgi: start %s: %w", scriptPath, err)
	}

	stdinFile := stdinW.(*os.File)
	stdoutFile := stdoutR.(*os.File)

	stdinFd, stdoutFd, err := extractPipeFds(stdinFile, stdoutFile)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	now := time.Now()
	return &Job{
		cmd:        cmd,
		stdinFile:  stdinFile,
		stdoutFile: stdoutFile,
		StdinFd:    stdinFd,
		StdoutFd:   stdoutFd,
		StdinOpen:  true,
		StdoutOpen: true,
		InputSpool: inputSpool,
		ClientFd:   -1,
		Started:    now,
		Deadline:   now.Add(timeout),
	}, nil
}

// extractPipeFds pulls the raw descriptors out of the *os.File pipes
// exec.Cmd created and arms them non-blocking so the event loop can
// poll them directly via golang.org/x/sys/unix, the way Session's
// client sockets are driven.
func extractPipeFds(stdinW, stdoutR *os.File) (int, int, error) {
	stdinFd := int(stdinW.Fd())
	stdoutFd := int(stdoutR.Fd())
	if err := unix.SetNonblock(stdinFd, true); err != nil {
		return 0, 0, fmt.Errorf("cgi: nonblock stdin: %w", err)
	}
	if err := unix.SetNonblock(stdoutFd, true); err != nil {
		return 0, 0, fmt.Errorf("cgi: nonblock stdout: %w", err)
	}
	return stdinFd, stdoutFd, nil
}

// FeedStdin writes as much of the spooled request body as a single
// non-blocking write will accept, closing stdin once exhausted. It is
// called from the engine's EPOLLOUT handler for StdinFd.
func (j *Job) FeedStdin() error {
	if j.InputSpool == nil {
		return j.CloseStdin()
	}
	r, err := j.InputSpool.Reader()
	if err != nil {
		return err
	}
	buf := make([]byte, 64*1024)
	if _, err := r.Seek(j.InputOff, 0); err != nil {
		return err
	}
	n, err := r.Read(buf)
	if n > 0 {
		written, werr := unix.Write(j.StdinFd, buf[:n])
		if werr != nil && werr != unix.EAGAIN {
			return werr
		}
		j.InputOff += int64(written)
	}
	if err != nil || j.InputOff >= j.InputSpool.Size() {
		return j.CloseStdin()
	}
	return nil
}

// CloseStdin closes the child's stdin half so it sees EOF on its
// input, idempotently.
func (j *Job) CloseStdin() error {
	if !j.StdinOpen {
		return nil
	}
	j.StdinOpen = false
	return j.stdinFile.Close()
}

// ReadStdout drains whatever the child has written so far into
// Output. Called from the engine's EPOLLIN handler for StdoutFd.
func (j *Job) ReadStdout() (n int, eof bool, err error) {
	buf := make([]byte, 64*1024)
	n, err = unix.Read(j.StdoutFd, buf)
	if n > 0 {
		j.Output = append(j.Output, buf[:n]...)
	}
	if n == 0 && err == nil {
		return 0, true, nil
	}
	if err == unix.EAGAIN {
		return n, false, nil
	}
	return n, err != nil, err
}

// CloseStdout closes the read end and reaps the child, recording exit
// status for the caller to translate into 200/502.
func (j *Job) CloseStdout() {
	if j.StdoutOpen {
		j.StdoutOpen = false
		j.stdoutFile.Close()
	}
	j.ExitErr = j.cmd.Wait()
	j.Done = true
}

// Kill terminates a job that overran its deadline (spec.md §4.5's
// CGI timeout), translated by the caller into a 504.
func (j *Job) Kill() {
	if j.cmd.Process != nil {
		_ = j.cmd.Process.Kill()
	}
}

func scriptDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i+1]
		}
	}
	return "./"
}
