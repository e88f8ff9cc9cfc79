package rda

import "errors"

var (
	ErrMalformed      = errors.New("rda: malformed text")
	ErrTooDeep        = errors.New("rda: tree is deeper than the delimiter set")
	ErrInvalidOptions = errors.New("rda: invalid codec options")
	ErrInvalidText    = errors.New("rda: scalar is not valid utf-8")
)
