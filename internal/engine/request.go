package engine

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/httpwire"
	"github.com/hipoliciak/webserv/internal/router"
	"github.com/hipoliciak/webserv/internal/spool"
)

// advance drives a session's state machine as far as the currently
// buffered bytes allow, per spec.md §4.2: reading-headers until a full
// head is parsed, then reading-sized-body or the
// reading-chunk-size/reading-chunk-data cycle until the body is fully
// spooled, at which point the request is ready to dispatch.
//
// It returns true once the request is fully read and ready for
// dispatch, and an error (translated by the caller into an error
// response) if the wire data is malformed or the body cannot be
// spooled. A body over the effective max size is not an error: it
// sets BodyRejected and returns true, and dispatch answers 413.
func (l *Loop) advance(s *Session) (ready bool, err error) {
	for {
		switch s.State {
		case stateReadingHead:
			head, perr := httpwire.ParseHead(s.Buf[:s.Offset])
			if perr == httpwire.ErrIncomplete {
				return false, nil
			}
			if perr != nil {
				return false, perr
			}
			s.Head = head
			s.compact(head.Consumed)

			if head.Expect100 {
				// Best-effort per spec.md §9 Open Questions: write the
				// interim response and ignore any failure rather than
				// holding up the body read that follows.
				unix.Write(s.Fd, []byte("HTTP/1.1 100 Continue\r\n\r\n"))
			}

			if !head.HasBody() {
				return true, nil
			}

			// The effective max-body-size is location-specific, so the
			// location must be selected here rather than deferred to
			// dispatch, per spec.md §4.2's headers-complete transition.
			// A session without a server config applies no body-size cap.
			if s.Server != nil {
				loc := router.SelectLocation(s.Server, head.Method, pathOnly(head.URI))
				s.MaxBodySize = loc.EffectiveMaxBodySize(s.Server)
			}
			if head.HasContentLength && s.MaxBodySize > 0 && head.ContentLength > s.MaxBodySize {
				s.BodyRejected = true
				return true, nil
			}

			sp, serr := spool.New()
			if serr != nil {
				return false, serr
			}
			s.BodySpool = sp
			if head.Chunked {
				s.State = stateReadingChunkSize
			} else {
				s.BodyRemaining = head.ContentLength
				s.State = stateReadingSizedBody
			}

		case stateReadingSizedBody:
			n := int64(s.Offset)
			if n > s.BodyRemaining {
				n = s.BodyRemaining
			}
			if n > 0 {
				if _, werr := s.BodySpool.Write(s.Buf[:n]); werr != nil {
					return false, werr
				}
				s.BodyRemaining -= n
				s.compact(int(n))
			}
			// Reject as soon as the limit is crossed rather than after
			// the full declared length has been spooled, so a client
			// cannot force unbounded disk writes before a 413.
			if s.MaxBodySize > 0 && s.BodySpool.Size() > s.MaxBodySize {
				s.BodyRejected = true
				return true, nil
			}
			if s.BodyRemaining == 0 {
				return true, nil
			}
			return false, nil

		case stateReadingChunkSize:
			size, consumed, perr := httpwire.ChunkLine(s.Buf[:s.Offset])
			if perr == httpwire.ErrIncomplete {
				return false, nil
			}
			if perr != nil {
				return false, perr
			}
			s.compact(consumed)
			if size == 0 {
				s.State = stateReadingChunkTrailer
				continue
			}
			s.ChunkRemaining = size
			s.State = stateReadingChunkData

		case stateReadingChunkData:
			n := int64(s.Offset)
			if n > s.ChunkRemaining {
				n = s.ChunkRemaining
			}
			if n > 0 {
				if _, werr := s.BodySpool.Write(s.Buf[:n]); werr != nil {
					return false, werr
				}
				s.ChunkRemaining -= n
				s.ChunkTotal += n
				s.compact(int(n))
			}
			if s.MaxBodySize > 0 && s.BodySpool.Size() > s.MaxBodySize {
				s.BodyRejected = true
				return true, nil
			}
			if s.ChunkRemaining > 0 {
				return false, nil
			}
			trailerLen := httpwire.ChunkTrailerLen(s.Buf[:s.Offset])
			if trailerLen == -1 {
				return false, nil
			}
			s.compact(trailerLen)
			s.State = stateReadingChunkSize

		case stateReadingChunkTrailer:
			// Final "0\r\n" chunk already consumed by
			// stateReadingChunkSize; only the terminating CRLF (or
			// bare LF) remains.
			trailerLen := httpwire.ChunkTrailerLen(s.Buf[:s.Offset])
			if trailerLen == -1 {
				return false, nil
			}
			s.compact(trailerLen)
			return true, nil

		default:
			return false, nil
		}
	}
}

// pathOnly strips a query string off a request-target, mirroring
// router.Dispatch's own stripQuery since the location lookup here runs
// ahead of the full dispatch pass.
func pathOnly(uri string) string {
	if i := strings.IndexByte(uri, '?'); i != -1 {
		return uri[:i]
	}
	return uri
}
