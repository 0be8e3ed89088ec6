package httpwire

import (
	"bytes"
	"strconv"
	"strings"
)

// ChunkLine locates one chunk-size line ("HEX[;ext]\r\n") in buf
// starting at offset 0 and returns the parsed size and the number of
// bytes the line itself occupies (including its terminator). It
// returns ErrIncomplete if the line is not fully buffered yet, and
// ErrMalformed if the hex prefix cannot be parsed, per spec.md §4.2's
// reading-chunk-size state.
func ChunkLine(buf []byte) (size int64, consumed int, err error) {
	nl := bytes.IndexByte(buf, '\n')
	if nl == -1 {
		return 0, 0, ErrIncomplete
	}
	line := buf[:nl]
	lineLen := nl + 1
	line = bytes.TrimSuffix(line, []byte("\r"))

	hexPart := line
	if semi := bytes.IndexByte(line, ';'); semi != -1 {
		hexPart = line[:semi]
	}
	hexPart = bytes.TrimSpace(hexPart)
	if len(hexPart) == 0 {
		return 0, 0, ErrMalformed
	}

	n, err := strconv.ParseInt(strings.TrimSpace(string(hexPart)), 16, 64)
	if err != nil || n < 0 {
		return 0, 0, ErrMalformed
	}
	return n, lineLen, nil
}

// ChunkTrailerLen reports how many bytes of buf are consumed by the
// CRLF (or bare LF) that follows a chunk's data, or -1 if not yet
// fully buffered.
func ChunkTrailerLen(buf []byte) int {
	if len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n' {
		return 2
	}
	if len(buf) >= 1 && buf[0] == '\n' {
		return 1
	}
	return -1
}
