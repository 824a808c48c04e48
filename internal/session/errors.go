package session

import "errors"

var (
	ErrUnbound           = errors.New("session: not bound to a transport")
	ErrClosed            = errors.New("session: closed")
	ErrAlreadyBound      = errors.New("session: already bound")
	ErrHandlerRegistered = errors.New("session: handler already registered")
	ErrDuplicateSequence = errors.New("session: duplicate sequence registration")
)

// ResponseError carries the error message of a failed response, either
// produced by the peer's handler or synthesized locally at teardown. The
// message is exactly what the peer put on the wire.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string { return e.Message }
