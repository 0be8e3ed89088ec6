package engine

import (
	"os"
	"sync"
	"time"

	"github.com/hipoliciak/webserv/internal/cgi"
	"github.com/hipoliciak/webserv/internal/config"
	"github.com/hipoliciak/webserv/internal/httpwire"
	"github.com/hipoliciak/webserv/internal/spool"
)

// maxRawSize bounds a session's read buffer, as the teacher's Session
// bounds Buf (server/engine/session.go). A request whose header block
// never completes within this many bytes is rejected, since nothing
// downstream can safely buffer without limit.
const maxRawSize = 1 << 16

// state names one step of the per-client request lifecycle described
// in spec.md §4.2.
type state int

const (
	stateReadingHead state = iota
	stateReadingSizedBody
	stateReadingChunkSize
	stateReadingChunkData
	stateReadingChunkTrailer
	stateDispatching
	stateWriting
	stateClosed
)

// bufPool reuses read buffers across connections the way the teacher's
// bufPool does (server/engine/session.go), safely single-threaded here
// since exactly one goroutine ever touches a Session.
var bufPool = sync.Pool{
	New: func() any { return make([]byte, maxRawSize) },
}

// Session is the per-connection state machine: buffered bytes not yet
// parsed into a head, the body spool once framing is known, and the
// pending write queue once a response has been built.
type Session struct {
	Fd int

	Buf    []byte
	Offset int

	State state
	Head  *httpwire.Head

	BodySpool      *spool.Spool
	BodyRemaining  int64 // sized-body bytes still expected
	ChunkRemaining int64 // current chunk's bytes still expected
	ChunkTotal     int64 // running total across all chunks; max-body checks use the spool's size

	MaxBodySize  int64 // effective cap for the request currently being read, resolved at headers-complete
	BodyRejected bool  // 413-trigger flag set mid-read; loop stops consuming the socket for this request

	CGIJob *cgi.Job

	WriteBuf []byte
	WriteOff int
	Close    bool // close the connection once the write queue drains

	// StreamFile/StreamRemaining carry a large static file's remaining
	// bytes once its headers have been queued, so drainWrite can keep
	// streaming it chunk by chunk rather than holding the whole body in
	// memory. Set by dispatchStatic, consumed by drainWrite.
	StreamFile      *os.File
	StreamRemaining int64

	Server       *config.Server
	LastActivity time.Time
}

// NewSession allocates a fresh session for fd, borrowing a read buffer
// from the pool.
func NewSession(fd int, server *config.Server) *Session {
	return &Session{
		Fd:           fd,
		Buf:          bufPool.Get().([]byte)[:0],
		State:        stateReadingHead,
		Server:       server,
		LastActivity: time.Now(),
	}
}

// reset prepares a session to read the next pipelined request on the
// same connection, releasing per-request state but keeping the
// connection's read buffer and any bytes already buffered past the
// previous request's end.
func (s *Session) reset() {
	s.Head = nil
	s.BodySpool = nil
	s.BodyRemaining = 0
	s.ChunkRemaining = 0
	s.ChunkTotal = 0
	s.MaxBodySize = 0
	s.BodyRejected = false
	s.CGIJob = nil
	s.WriteBuf = nil
	s.WriteOff = 0
	s.State = stateReadingHead
}

// release returns the session's buffer to the pool and closes any body
// spool or open stream file still held, called once the connection is
// torn down.
func (s *Session) release() {
	if s.BodySpool != nil {
		s.BodySpool.Close()
		s.BodySpool = nil
	}
	if s.StreamFile != nil {
		s.StreamFile.Close()
		s.StreamFile = nil
	}
	if s.Buf != nil {
		bufPool.Put(s.Buf[:0])
		s.Buf = nil
	}
}

// BodySize reports how many bytes have been spooled for this request,
// 0 if it carries no body.
func (s *Session) BodySize() int64 {
	if s.BodySpool == nil {
		return 0
	}
	return s.BodySpool.Size()
}

// compact discards the first n consumed bytes of the read buffer, as
// the teacher's parser loop does after a full request is extracted
// (server/protocol/parser.go).
func (s *Session) compact(n int) {
	if n <= 0 {
		return
	}
	remaining := s.Offset - n
	if remaining > 0 {
		copy(s.Buf, s.Buf[n:s.Offset])
	}
	s.Offset = remaining
	s.Buf = s.Buf[:s.Offset]
}
