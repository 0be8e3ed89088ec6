package engine

import (
	"time"

	"github.com/hipoliciak/webserv/internal/respbuild"
)

// sweepTimeouts implements spec.md §4.5/§4.6: a client idle past its
// server's keepalive_timeout is closed, and a CGI job that has run
// past its server's cgi_timeout is killed and answered with a 504. It
// runs once per EpollWait return, since that call already blocks for
// up to 5s and gives the loop a natural heartbeat without a separate
// ticker goroutine.
func (l *Loop) sweepTimeouts() {
	now := time.Now()

	for fd, s := range l.sessions {
		if s.CGIJob != nil {
			if now.After(s.CGIJob.Deadline) {
				l.timeoutCGI(s)
			}
			continue
		}
		if s.State == stateReadingHead && s.Offset == 0 {
			timeout := l.idleTimeout
			if s.Server != nil && s.Server.KeepAliveTimeout > 0 {
				timeout = s.Server.KeepAliveTimeout
			}
			if now.Sub(s.LastActivity) > timeout {
				l.closeSession(s)
				delete(l.sessions, fd)
			}
		}
	}
}

func (l *Loop) timeoutCGI(s *Session) {
	job := s.CGIJob
	if job == nil {
		return
	}
	job.Kill()
	l.unregister(job.StdoutFd)
	if job.StdinOpen {
		l.unregister(job.StdinFd)
	}
	l.cgiQueue.Release(job.ClientFd)
	l.admitNextQueued()

	if job.InputSpool != nil {
		job.InputSpool.Close()
	}
	s.CGIJob = nil
	l.sendAndMaybeClose(s, respbuild.ErrorPage(s.Server, 504), true)
}
