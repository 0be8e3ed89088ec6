package engine

import (
	"log"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/httpwire"
	"github.com/hipoliciak/webserv/internal/respbuild"
)

// handleClientEvent drives one client socket's readiness: read more
// bytes and advance the request state machine, or drain the pending
// write queue, depending on which half of the connection is ready.
func (l *Loop) handleClientEvent(s *Session, events uint32) {
	s.LastActivity = time.Now()

	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		l.closeSession(s)
		return
	}

	if s.State == stateWriting {
		l.drainSessionWrite(s)
		return
	}

	if events&unix.EPOLLIN != 0 {
		l.readClient(s)
	}
}

func (l *Loop) readClient(s *Session) {
	if s.Offset >= maxRawSize {
		l.sendAndMaybeClose(s, respbuild.ErrorPage(s.Server, 413), true)
		return
	}

	if cap(s.Buf) == 0 {
		s.Buf = bufPool.Get().([]byte)[:0]
	}
	buf := s.Buf[:cap(s.Buf)]
	n, err := unix.Read(s.Fd, buf[s.Offset:])
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		l.closeSession(s)
		return
	}
	if n == 0 {
		l.closeSession(s)
		return
	}
	s.Offset += n
	s.Buf = buf[:s.Offset]

	ready, perr := l.advance(s)
	if perr != nil {
		l.sendAndMaybeClose(s, respbuild.ErrorPage(s.Server, 400), true)
		return
	}
	if !ready {
		return
	}

	resp, cgiStarted, derr := l.dispatch(s)
	if derr != nil {
		l.sendAndMaybeClose(s, respbuild.ErrorPage(s.Server, 500), true)
		return
	}
	if cgiStarted {
		// The session is now driven by handleCGIStdout/handleCGIStdin;
		// pause reading further pipelined bytes until the job
		// finishes and a response is queued.
		l.modify(s.Fd, 0)
		return
	}
	l.sendAndMaybeClose(s, resp, false)
}

// sendAndMaybeClose queues resp for writing, forcing connection close
// when forceClose is set (malformed requests, 413s) or when the
// client did not request keep-alive.
func (l *Loop) sendAndMaybeClose(s *Session, resp *httpwire.Response, forceClose bool) {
	closeAfter := forceClose || resp.Close || s.Head == nil || !keepAliveRequested(s)
	resp.Close = closeAfter

	if s.BodySpool != nil {
		s.BodySpool.Close()
		s.BodySpool = nil
	}

	out := make([]byte, 0, 256+len(resp.Body))
	out = resp.Build(out)
	s.reset()
	s.queueWrite(out, closeAfter)

	if err := l.modify(s.Fd, unix.EPOLLOUT); err != nil {
		log.Printf("engine: arm write fd %d: %v", s.Fd, err)
		l.closeSession(s)
	}
}

func keepAliveRequested(s *Session) bool {
	if s.Head == nil {
		return false
	}
	conn := s.Head.Get("Connection")
	if conn == "" {
		return s.Head.Proto == "HTTP/1.1"
	}
	return !containsFold(conn, "close")
}

func containsFold(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := 0; j < len(sub); j++ {
			a, b := s[i+j], sub[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (l *Loop) drainSessionWrite(s *Session) {
	done, err := s.drainWrite()
	if err != nil {
		l.closeSession(s)
		return
	}
	if !done {
		return
	}
	if s.Close {
		l.closeSession(s)
		return
	}
	s.State = stateReadingHead
	l.modify(s.Fd, unix.EPOLLIN)
}
