package wire

import "errors"

var (
	ErrUnknownType  = errors.New("unknown event type")
	ErrMissingField = errors.New("missing field")
)
