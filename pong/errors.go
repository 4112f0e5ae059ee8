package pong

import "errors"

var ErrInvalidSlot = errors.New("invalid slot")

type InvalidConfigError string

func (e InvalidConfigError) Error() string { return "invalid config: " + string(e) }
