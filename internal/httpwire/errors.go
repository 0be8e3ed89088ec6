package httpwire

import "errors"

var (
	// ErrIncomplete means the buffer does not yet contain a full
	// element (header block, chunk-size line, chunk data) and the
	// caller should wait for more bytes.
	ErrIncomplete = errors.New("httpwire: incomplete")

	// ErrMalformed means the bytes present can never form a valid
	// request; the caller should respond 400 and close.
	ErrMalformed = errors.New("httpwire: malformed request")
)
