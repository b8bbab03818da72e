package session

import "errors"

var (
	ErrClosed             = errors.New("session closed")
	ErrNotRunning         = errors.New("session is not running")
	ErrNotInitiator       = errors.New("only the interviewer starts the call")
	ErrNotPermitted       = errors.New("action is not permitted for this role")
	ErrNoPeer             = errors.New("nobody to call")
	ErrCallInProgress     = errors.New("call already in progress")
	ErrEmptyMessage       = errors.New("empty chat message")
	ErrMediaUnavailable   = errors.New("local media unavailable")
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	ErrRelayClosed        = errors.New("relay connection lost")
)
