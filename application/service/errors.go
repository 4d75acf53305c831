package service

import "errors"

// ErrUnknownTable indicates the requested table has no configured schema.
var ErrUnknownTable = errors.New("findex: unknown table")
