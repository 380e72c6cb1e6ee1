package migration

import "errors"

// ErrInvalidArgument is returned when a requested type change is not
// allowed or its inputs are malformed.
var ErrInvalidArgument = errors.New("invalid argument")
