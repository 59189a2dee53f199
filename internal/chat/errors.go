package chat

import "errors"

var (
	// ErrValidation reports malformed input, such as a blank user name or
	// an empty message body.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an unknown session token or message id.
	ErrNotFound = errors.New("not found")
)
