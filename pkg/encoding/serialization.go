package encoding

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zeusync/rda/pkg/rda"
)

// Serializable is implemented by every type that can be stored into an Rda
// and restored from one. A type participates only by implementing both
// methods.
//
// For any value v and a fresh target t of the same type,
//
//	r, _ := v.ToRda()
//	_ = t.FromRda(r)
//
// must leave t equivalent to v. Equivalence is structural equality unless the
// type documents otherwise.
//
// ToRda must not mutate the receiver and must return a complete encoding:
// FromRda needs nothing but the returned value. When part of the state has no
// representable form it returns an error matching ErrEncoding.
//
// FromRda replaces the receiver's state with the content of r. On failure it
// returns an error matching ErrDecoding and leaves the receiver unchanged.
// Implementations read every field into locals first and assign them only
// once all reads have succeeded; Reader makes that pattern short.
//
// Neither method is safe to call concurrently on the same value.
type Serializable interface {
	ToRda() (*rda.Rda, error)
	FromRda(r *rda.Rda) error
}

// Ptr constrains PT to a pointer to T that implements Serializable. It lets
// generic helpers allocate a fresh T and call FromRda on it.
type Ptr[T any] interface {
	*T
	Serializable
}

// Encode calls s.ToRda and normalizes the failure modes: a nil value, a nil
// result and untyped errors are all reported as encoding errors.
func Encode(s Serializable) (*rda.Rda, error) {
	if isNil(s) {
		return nil, NewEncodingError("", "", ErrNilValue)
	}
	r, err := s.ToRda()
	if err != nil {
		return nil, asEncodingError(s, err)
	}
	if r == nil {
		return nil, NewEncodingError(typeName(s), "", fmt.Errorf("%w: ToRda returned nil", ErrNilValue))
	}
	return r, nil
}

// Decode builds a new T from r. On failure no value is returned.
func Decode[T any, PT Ptr[T]](r *rda.Rda) (*T, error) {
	if r == nil {
		var zero PT
		return nil, NewDecodingError(typeName(zero), "", ErrNilValue)
	}
	out := new(T)
	if err := PT(out).FromRda(r); err != nil {
		return nil, asDecodingError(PT(out), err)
	}
	return out, nil
}

// Restore decodes r into a zero T and copies the result into target only when
// decoding succeeded, so target is never left half written even if its
// FromRda does not guarantee that itself.
func Restore[T any, PT Ptr[T]](target PT, r *rda.Rda) error {
	if target == nil {
		return NewDecodingError(typeName(target), "", ErrNilValue)
	}
	v, err := Decode[T, PT](r)
	if err != nil {
		return err
	}
	*target = *v
	return nil
}

// Marshal encodes s and renders it with codec. A nil codec means rda.Default.
func Marshal(s Serializable, codec *rda.Codec) (string, error) {
	r, err := Encode(s)
	if err != nil {
		return "", err
	}
	if codec == nil {
		codec = rda.Default()
	}
	text, err := codec.Marshal(r)
	if err != nil {
		return "", NewEncodingError(typeName(s), "", err)
	}
	return text, nil
}

// Unmarshal parses text and decodes it into target.
func Unmarshal(text string, target Serializable) error {
	if isNil(target) {
		return NewDecodingError("", "", ErrNilValue)
	}
	r, err := rda.Parse(text)
	if err != nil {
		return NewDecodingError(typeName(target), "", err)
	}
	if err = target.FromRda(r); err != nil {
		return asDecodingError(target, err)
	}
	return nil
}

// RoundTrip encodes v, decodes the result into fresh and checks that fresh
// encodes to an equivalent Rda. fresh must be a distinct value of v's type.
func RoundTrip(v, fresh Serializable) error {
	first, err := Encode(v)
	if err != nil {
		return err
	}
	if err = fresh.FromRda(first.Clone()); err != nil {
		return asDecodingError(fresh, err)
	}
	second, err := Encode(fresh)
	if err != nil {
		return err
	}
	if !first.Equal(second) {
		return fmt.Errorf("%w: %s: %s != %s", ErrRoundTrip, typeName(v), first, second)
	}
	return nil
}

func asEncodingError(s Serializable, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return NewEncodingError(typeName(s), "", err)
}

func asDecodingError(s Serializable, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return NewDecodingError(typeName(s), "", err)
}

func isNil(s Serializable) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func typeName(s any) string {
	if named, ok := s.(interface{ RdaType() string }); ok && !isNilAny(s) {
		return named.RdaType()
	}
	t := reflect.TypeOf(s)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func isNilAny(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
