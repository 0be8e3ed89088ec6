// Package engine implements the single-threaded, level-triggered
// readiness loop described by spec.md §4.1 and §5: one goroutine owns
// epoll, every client Session, and every running CGI job, so there is
// no shared mutable state and therefore nothing to lock. This is a
// deliberate departure from the teacher's design
// (server/engine/epoll.go's StartEpoll + pool.go's workerEpoll), which
// fans fd-ready events out over a channel to a goroutine-per-CPU
// worker pool reading Sessions through an atomic.Pointer table. The
// teacher's buffer-pooling and fd-tagged dispatch idioms survive; the
// concurrency model does not.
package engine

import (
	"log"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/cgi"
	"github.com/hipoliciak/webserv/internal/config"
)

const maxEvents = 256

// fdKind tags what a ready fd refers to, since this loop's registry
// holds listeners, client sockets, and CGI pipes side by side rather
// than assuming every fd is a client socket.
type fdKind int

const (
	fdListener fdKind = iota
	fdClient
	fdCGIStdin
	fdCGIStdout
)

type fdEntry struct {
	kind    fdKind
	session *Session // set for fdClient, fdCGIStdin, fdCGIStdout
}

// Loop owns one epoll instance, potentially serving several listeners
// when multiple server{} blocks share a port space, as spec.md §2
// allows.
type Loop struct {
	epollFd   int
	listeners map[int]*config.Server // listenFd -> its server config
	fds       map[int]*fdEntry
	sessions  map[int]*Session
	cgiQueue  *cgi.Queue

	idleTimeout time.Duration
	lastSweep   time.Time
	stopped     bool
}

// New creates a Loop and binds a listener for each server's host:port,
// registering every listener fd under one shared epoll instance.
func New(servers []*config.Server) (*Loop, error) {
	epollFd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		epollFd:     epollFd,
		listeners:   make(map[int]*config.Server),
		fds:         make(map[int]*fdEntry),
		sessions:    make(map[int]*Session),
		cgiQueue:    cgi.NewQueue(),
		idleTimeout: config.DefaultKeepAliveTimeout,
		lastSweep:   time.Now(),
	}

	for _, srv := range servers {
		fd, lerr := listen(srv.Host, srv.Port)
		if lerr != nil {
			l.Close()
			return nil, lerr
		}
		if err := l.register(fd, unix.EPOLLIN); err != nil {
			l.Close()
			return nil, err
		}
		l.listeners[fd] = srv
		l.fds[fd] = &fdEntry{kind: fdListener}
		if srv.KeepAliveTimeout > 0 {
			l.idleTimeout = srv.KeepAliveTimeout
		}
	}

	return l, nil
}

func (l *Loop) register(fd int, events uint32) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *Loop) modify(fd int, events uint32) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *Loop) unregister(fd int) {
	unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(l.fds, fd)
}

// Run blocks, servicing readiness events until Stop is called. The
// wait timeout doubles as the idle/CGI-timeout sweep interval (spec.md
// §4.5/§4.6), matching the teacher's preference for deriving timers
// from the event loop itself rather than a separate goroutine+ticker.
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, maxEvents)
	for !l.stopped {
		n, err := unix.EpollWait(l.epollFd, events, 5000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			l.handleEvent(fd, events[i].Events)
		}

		l.sweepTimeouts()
	}
	return nil
}

// Stop breaks Run's loop on its next iteration.
func (l *Loop) Stop() { l.stopped = true }

// Close releases the epoll fd and every listener, used on shutdown and
// on New's error paths.
func (l *Loop) Close() {
	for fd := range l.listeners {
		unix.Close(fd)
	}
	if l.epollFd > 0 {
		unix.Close(l.epollFd)
	}
}

func (l *Loop) handleEvent(fd int, events uint32) {
	entry, ok := l.fds[fd]
	if !ok {
		return
	}

	switch entry.kind {
	case fdListener:
		l.acceptAll(fd)
	case fdClient:
		l.handleClientEvent(entry.session, events)
	case fdCGIStdout:
		l.handleCGIStdout(entry.session, events)
	case fdCGIStdin:
		l.handleCGIStdin(entry.session, events)
	}
}

func (l *Loop) acceptAll(listenFd int) {
	srv := l.listeners[listenFd]
	for {
		connFd, _, err := unix.Accept(listenFd)
		if err != nil {
			return
		}
		unix.SetNonblock(connFd, true)
		setTCPNoDelay(connFd)

		s := NewSession(connFd, srv)
		l.sessions[connFd] = s
		l.fds[connFd] = &fdEntry{kind: fdClient, session: s}
		if err := l.register(connFd, unix.EPOLLIN); err != nil {
			log.Printf("engine: register client fd %d: %v", connFd, err)
			l.closeSession(s)
		}
	}
}

func (l *Loop) closeSession(s *Session) {
	l.unregister(s.Fd)
	delete(l.sessions, s.Fd)
	unix.Close(s.Fd)
	s.release()
}
