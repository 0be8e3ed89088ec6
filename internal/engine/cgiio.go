package engine

import (
	"log"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/cgi"
	"github.com/hipoliciak/webserv/internal/httpwire"
	"github.com/hipoliciak/webserv/internal/respbuild"
)

// registerCGIFds arms a freshly started job's stdin/stdout pipes with
// epoll, tagging each fd's registry entry back to the owning session
// so handleEvent can find its way from a pipe-ready event to the
// client it belongs to.
func (l *Loop) registerCGIFds(job *cgi.Job) {
	s := l.sessions[job.ClientFd]
	if s == nil {
		return
	}
	l.fds[job.StdoutFd] = &fdEntry{kind: fdCGIStdout, session: s}
	if err := l.register(job.StdoutFd, unix.EPOLLIN); err != nil {
		log.Printf("engine: register cgi stdout: %v", err)
	}

	if job.InputSpool != nil && job.InputSpool.Size() > 0 {
		l.fds[job.StdinFd] = &fdEntry{kind: fdCGIStdin, session: s}
		if err := l.register(job.StdinFd, unix.EPOLLOUT); err != nil {
			log.Printf("engine: register cgi stdin: %v", err)
		}
	} else {
		job.CloseStdin()
	}
}

func (l *Loop) handleCGIStdin(s *Session, events uint32) {
	job := s.CGIJob
	if job == nil || !job.StdinOpen {
		return
	}
	if err := job.FeedStdin(); err != nil {
		job.CloseStdin()
	}
	if !job.StdinOpen {
		l.unregister(job.StdinFd)
	}
}

func (l *Loop) handleCGIStdout(s *Session, events uint32) {
	job := s.CGIJob
	if job == nil {
		return
	}

	_, eof, err := job.ReadStdout()
	if err != nil && !eof {
		l.finishCGI(s, job, respbuild.ErrorPage(s.Server, 502))
		return
	}
	if !eof {
		return
	}

	l.unregister(job.StdoutFd)
	job.CloseStdout()

	if job.ExitErr != nil {
		l.finishCGI(s, job, respbuild.ErrorPage(s.Server, 502))
		return
	}

	resp := cgi.ParseOutput(job.Output)
	l.finishCGI(s, job, resp)
}

// finishCGI releases job's concurrency slot, admits the next queued
// request if one is waiting, and sends resp back to the client that
// originated job.
func (l *Loop) finishCGI(s *Session, job *cgi.Job, resp *httpwire.Response) {
	l.cgiQueue.Release(job.ClientFd)
	l.admitNextQueued()

	if job.InputSpool != nil {
		job.InputSpool.Close()
	}
	s.CGIJob = nil
	l.sendAndMaybeClose(s, resp, false)
}

// admitNextQueued starts the oldest parked CGI request once a running
// slot has freed up, per spec.md §4.5's FIFO overflow behaviour.
func (l *Loop) admitNextQueued() {
	clientFd, interpreter, scriptPath, env, ok := l.cgiQueue.Next()
	if !ok {
		return
	}
	s := l.sessions[clientFd]
	if s == nil {
		return
	}
	job, err := cgi.Start(interpreter, scriptPath, env, s.Server.CGITimeout, s.BodySpool)
	if err != nil {
		l.sendAndMaybeClose(s, respbuild.ErrorPage(s.Server, 502), false)
		return
	}
	job.ClientFd = clientFd
	s.CGIJob = job
	l.cgiQueue.TryAdmit(clientFd, job)
	l.registerCGIFds(job)
}
