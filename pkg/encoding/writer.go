package encoding

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/zeusync/rda/pkg/rda"
)

// Writer fills the slots of an Rda. The first failure is kept and every
// later call is a no-op, so ToRda implementations can write all fields and
// check the error once:
//
//	w := encoding.NewWriter("Point")
//	w.Int(0, int64(p.X))
//	w.Int(1, int64(p.Y))
//	return w.Rda()
type Writer struct {
	typ string
	out *rda.Rda
	err error
}

// NewWriter returns a writer for a value of the named type. The name is only
// used in error messages.
func NewWriter(typ string) *Writer {
	return &Writer{typ: typ, out: rda.New()}
}

// Err returns the first failure.
func (w *Writer) Err() error {
	return w.err
}

// Rda returns the encoded value or the first failure.
func (w *Writer) Rda() (*rda.Rda, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.out, nil
}

// Fail records err at slot i. Use it for state that has no representable
// form; a nil err defaults to ErrUnrepresentable.
func (w *Writer) Fail(i int, err error) {
	if err == nil {
		err = ErrUnrepresentable
	}
	w.fail(i, err)
}

func (w *Writer) String(i int, v string) {
	w.scalar(i, v)
}

func (w *Writer) Int(i int, v int64) {
	w.scalar(i, strconv.FormatInt(v, 10))
}

func (w *Writer) Uint(i int, v uint64) {
	w.scalar(i, strconv.FormatUint(v, 10))
}

func (w *Writer) Float(i int, v float64) {
	w.scalar(i, strconv.FormatFloat(v, 'g', -1, 64))
}

func (w *Writer) Bool(i int, v bool) {
	w.scalar(i, strconv.FormatBool(v))
}

// Bytes stores v as standard base64.
func (w *Writer) Bytes(i int, v []byte) {
	w.scalar(i, base64.StdEncoding.EncodeToString(v))
}

// Time stores v in UTC as RFC 3339 with nanoseconds. The location is not
// kept.
func (w *Writer) Time(i int, v time.Time) {
	w.scalar(i, v.UTC().Format(time.RFC3339Nano))
}

func (w *Writer) Duration(i int, v time.Duration) {
	w.Int(i, int64(v))
}

// Strings stores vs as a counted list.
func (w *Writer) Strings(i int, vs []string) {
	if !w.ready(i) {
		return
	}
	list := newCountedList(len(vs))
	for _, v := range vs {
		list.Append(rda.NewScalar(v))
	}
	w.out.Set(i, list)
}

// Object stores the encoding of s at slot i. A nil s is an error.
func (w *Writer) Object(i int, s Serializable) {
	if !w.ready(i) {
		return
	}
	r, err := Encode(s)
	if err != nil {
		w.err = nest(ErrorCodeEncoding, w.typ, i, err)
		return
	}
	w.out.Set(i, r)
}

// List stores items as a counted list of encoded objects.
func (w *Writer) List(i int, items ...Serializable) {
	if !w.ready(i) {
		return
	}
	list := newCountedList(len(items))
	for j, item := range items {
		r, err := Encode(item)
		if err != nil {
			w.err = nest(ErrorCodeEncoding, w.typ, i, nest(ErrorCodeEncoding, "", j+1, err))
			return
		}
		list.Append(r)
	}
	w.out.Set(i, list)
}

// Raw stores a copy of r at slot i.
func (w *Writer) Raw(i int, r *rda.Rda) {
	if !w.ready(i) {
		return
	}
	w.out.Set(i, r.Clone())
}

// WriteObjects is List for a typed slice.
func WriteObjects[T Serializable](w *Writer, i int, items []T) {
	generic := make([]Serializable, len(items))
	for j, item := range items {
		generic[j] = item
	}
	w.List(i, generic...)
}

func (w *Writer) scalar(i int, v string) {
	if !w.ready(i) {
		return
	}
	w.out.Elem(i).SetScalar(v)
}

func (w *Writer) ready(i int) bool {
	if w.err != nil {
		return false
	}
	if i < 0 {
		w.fail(i, fmt.Errorf("%w: negative slot", ErrInvalidValue))
		return false
	}
	return true
}

func (w *Writer) fail(i int, err error) {
	if w.err == nil {
		w.err = nest(ErrorCodeEncoding, w.typ, i, err)
	}
}

// newCountedList starts a list whose slot 0 holds the item count. The count
// keeps one-item and empty lists distinguishable after the text form
// collapses single-child lists.
func newCountedList(n int) *rda.Rda {
	return rda.NewList(rda.NewScalar(strconv.Itoa(n)))
}
