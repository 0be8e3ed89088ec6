package engine

import "golang.org/x/sys/unix"

// streamChunkSize bounds a single read from StreamFile, the same way a
// single read(2) off the client socket is bounded elsewhere in the loop.
const streamChunkSize = 64 << 10

// queueWrite arms a session to write body's bytes out, switching it
// into stateWriting. Unlike the teacher's WriteBuf (server/engine/write.go),
// which does one blocking syscall.Write per response, the bytes are
// written later by drainWrite with non-blocking writes on EPOLLOUT
// readiness, since a slow client must never stall the event loop.
func (s *Session) queueWrite(body []byte, closeAfter bool) {
	s.WriteBuf = body
	s.WriteOff = 0
	s.Close = closeAfter
	s.State = stateWriting
}

// drainWrite pushes as much of the pending write buffer as repeated
// non-blocking write() calls accept, stopping at the first EAGAIN.
// Once the buffer is exhausted and
// StreamFile is set (a large static file streamed per spec.md §4.4), it
// refills the buffer with the next chunk read from disk instead of
// holding the whole file in memory, and keeps draining. It returns true
// once everything, including any streamed file, is fully flushed.
func (s *Session) drainWrite() (done bool, err error) {
	for {
		for s.WriteOff < len(s.WriteBuf) {
			n, werr := unix.Write(s.Fd, s.WriteBuf[s.WriteOff:])
			if n > 0 {
				s.WriteOff += n
			}
			if werr != nil {
				if werr == unix.EAGAIN {
					return false, nil
				}
				return false, werr
			}
			if n == 0 {
				return false, nil
			}
		}
		if s.StreamFile == nil {
			return true, nil
		}
		if s.StreamRemaining == 0 {
			s.StreamFile.Close()
			s.StreamFile = nil
			return true, nil
		}
		if cerr := s.fillStreamChunk(); cerr != nil {
			s.StreamFile.Close()
			s.StreamFile = nil
			return false, cerr
		}
	}
}

// fillStreamChunk reads the next bounded slice of StreamFile into the
// write buffer for drainWrite to push out.
func (s *Session) fillStreamChunk() error {
	n := int64(streamChunkSize)
	if n > s.StreamRemaining {
		n = s.StreamRemaining
	}
	buf := make([]byte, n)
	read, err := s.StreamFile.Read(buf)
	if err != nil && read == 0 {
		return err
	}
	s.WriteBuf = buf[:read]
	s.WriteOff = 0
	s.StreamRemaining -= int64(read)
	return nil
}
