package usecase

import "errors"

var (
	ErrAccessDenied     = errors.New("access denied")
	ErrIdentityMismatch = errors.New("identity does not match token subject")
	ErrNotInRoom        = errors.New("not in room")
	ErrUnknownEvent     = errors.New("unknown side-channel event")
)
