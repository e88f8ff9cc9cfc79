package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// Error kinds. Every *Error matches exactly one of them with errors.Is.

	ErrEncoding = errors.New("encoding failed")
	ErrDecoding = errors.New("decoding failed")

	// Causes

	ErrNilValue          = errors.New("nil value")
	ErrMissing           = errors.New("missing element")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnrepresentable   = errors.New("value has no representable form")
	ErrUnknownType       = errors.New("unknown type")
	ErrAlreadyRegistered = errors.New("type already registered")
	ErrRoundTrip         = errors.New("round trip mismatch")
)

// ErrorCode identifies the error kind.
type ErrorCode int

const (
	ErrorCodeEncoding ErrorCode = 1001
	ErrorCodeDecoding ErrorCode = 2001
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeEncoding:
		return "encode"
	case ErrorCodeDecoding:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is an encoding or decoding failure with the type and slot path where
// it happened.
type Error struct {
	Code  ErrorCode
	Type  string
	Path  string
	Cause error
}

func NewEncodingError(typ, path string, cause error) *Error {
	return &Error{Code: ErrorCodeEncoding, Type: typ, Path: path, Cause: cause}
}

func NewDecodingError(typ, path string, cause error) *Error {
	return &Error{Code: ErrorCodeDecoding, Type: typ, Path: path, Cause: cause}
}

// Error renders e.g. "encoding: decode Point at [1]: missing element".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("encoding: ")
	b.WriteString(e.Code.String())
	if e.Type != "" {
		b.WriteByte(' ')
		b.WriteString(e.Type)
	}
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrEncoding:
		return e.Code == ErrorCodeEncoding
	case ErrDecoding:
		return e.Code == ErrorCodeDecoding
	}
	return false
}

func IsEncodingError(err error) bool {
	return errors.Is(err, ErrEncoding)
}

func IsDecodingError(err error) bool {
	return errors.Is(err, ErrDecoding)
}

func slotPath(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// nest re-roots err at slot i of typ. Errors coming from nested objects keep
// their cause and get the slot prepended to their path.
func nest(code ErrorCode, typ string, i int, err error) *Error {
	var inner *Error
	if errors.As(err, &inner) {
		return &Error{Code: code, Type: typ, Path: slotPath(i) + inner.Path, Cause: inner.Cause}
	}
	return &Error{Code: code, Type: typ, Path: slotPath(i), Cause: err}
}
