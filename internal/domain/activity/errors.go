package activity

import "errors"

// ErrInvalidInput indicates an activity entry or filter is malformed.
var ErrInvalidInput = errors.New("invalid activity input")
