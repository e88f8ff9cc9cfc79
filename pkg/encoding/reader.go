package encoding

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/zeusync/rda/pkg/rda"
)

// Reader reads the slots of an Rda written by Writer. Like Writer it keeps
// the first failure; after that every getter returns the zero value. FromRda
// implementations read into locals and assign only when Err is nil:
//
//	rd := encoding.NewReader("Point", r, 2)
//	x, y := rd.Int(0), rd.Int(1)
//	if err := rd.Err(); err != nil {
//		return err
//	}
//	p.X, p.Y = int(x), int(y)
//
// fields is the number of slots the type declares. It resolves the one case
// where the text form is ambiguous: a single-field value collapses into its
// field, so with fields == 1 the whole node is slot 0.
type Reader struct {
	typ   string
	slots []*rda.Rda
	err   error
}

// NewReader returns a reader over r for a type with the given number of
// declared fields.
func NewReader(typ string, r *rda.Rda, fields int) *Reader {
	rd := &Reader{typ: typ}
	switch {
	case r == nil:
		rd.err = NewDecodingError(typ, "", ErrNilValue)
	case fields == 1:
		rd.slots = []*rda.Rda{r.Canonical()}
	case r.IsScalar():
		rd.slots = []*rda.Rda{r}
	default:
		rd.slots = r.Elements()
	}
	return rd
}

// Err returns the first failure.
func (rd *Reader) Err() error {
	return rd.err
}

// Len returns the number of slots present.
func (rd *Reader) Len() int {
	return len(rd.slots)
}

// Has reports whether slot i is present.
func (rd *Reader) Has(i int) bool {
	return i >= 0 && i < len(rd.slots)
}

// Raw returns a copy of slot i.
func (rd *Reader) Raw(i int) *rda.Rda {
	n := rd.slot(i)
	if n == nil {
		return nil
	}
	return n.Clone()
}

func (rd *Reader) String(i int) string {
	v, _ := rd.scalar(i)
	return v
}

func (rd *Reader) Int(i int) int64 {
	v, ok := rd.scalar(i)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		rd.invalid(i, "integer", v)
		return 0
	}
	return n
}

func (rd *Reader) Uint(i int) uint64 {
	v, ok := rd.scalar(i)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		rd.invalid(i, "unsigned integer", v)
		return 0
	}
	return n
}

func (rd *Reader) Float(i int) float64 {
	v, ok := rd.scalar(i)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		rd.invalid(i, "float", v)
		return 0
	}
	return f
}

func (rd *Reader) Bool(i int) bool {
	v, ok := rd.scalar(i)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		rd.invalid(i, "bool", v)
		return false
	}
	return b
}

// Bytes reads base64 data. Empty data decodes to nil.
func (rd *Reader) Bytes(i int) []byte {
	v, ok := rd.scalar(i)
	if !ok || v == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		rd.invalid(i, "base64", v)
		return nil
	}
	return b
}

// Time returns the stored instant in UTC.
func (rd *Reader) Time(i int) time.Time {
	v, ok := rd.scalar(i)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		rd.invalid(i, "time", v)
		return time.Time{}
	}
	return t.UTC()
}

func (rd *Reader) Duration(i int) time.Duration {
	return time.Duration(rd.Int(i))
}

// Strings reads a counted list of scalars. An empty list decodes to nil.
func (rd *Reader) Strings(i int) []string {
	items, ok := rd.counted(i)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for j, item := range items {
		n := item.Canonical()
		if !n.IsScalar() {
			rd.fail(i, fmt.Errorf("%w: item %d is not a scalar", ErrInvalidValue, j))
			return nil
		}
		out[j] = n.Scalar()
	}
	return out
}

// Object decodes slot i into target.
func (rd *Reader) Object(i int, target Serializable) {
	n := rd.slot(i)
	if n == nil {
		return
	}
	if isNil(target) {
		rd.fail(i, ErrNilValue)
		return
	}
	if err := target.FromRda(n); err != nil {
		rd.fail(i, err)
	}
}

// Each calls fn with every item of the counted list at slot i, stopping at
// the first error.
func (rd *Reader) Each(i int, fn func(j int, item *rda.Rda) error) {
	items, ok := rd.counted(i)
	if !ok {
		return
	}
	for j, item := range items {
		if err := fn(j, item); err != nil {
			rd.fail(i, nest(ErrorCodeDecoding, "", j+1, err))
			return
		}
	}
}

// ReadObjects decodes the counted list at slot i into new values of T. An
// empty list decodes to nil.
func ReadObjects[T any, PT Ptr[T]](rd *Reader, i int) []T {
	var out []T
	rd.Each(i, func(_ int, item *rda.Rda) error {
		v, err := Decode[T, PT](item)
		if err != nil {
			return err
		}
		out = append(out, *v)
		return nil
	})
	if rd.err != nil {
		return nil
	}
	return out
}

func (rd *Reader) slot(i int) *rda.Rda {
	if rd.err != nil {
		return nil
	}
	if !rd.Has(i) {
		rd.fail(i, ErrMissing)
		return nil
	}
	return rd.slots[i]
}

func (rd *Reader) scalar(i int) (string, bool) {
	n := rd.slot(i)
	if n == nil {
		return "", false
	}
	n = n.Canonical()
	if !n.IsScalar() {
		rd.fail(i, fmt.Errorf("%w: expected a scalar, got %d elements", ErrInvalidValue, n.Len()))
		return "", false
	}
	return n.Scalar(), true
}

func (rd *Reader) counted(i int) ([]*rda.Rda, bool) {
	n := rd.slot(i)
	if n == nil {
		return nil, false
	}
	n = n.Canonical()
	count, err := strconv.Atoi(n.Scalar())
	if err != nil || count < 0 {
		rd.invalid(i, "list count", n.Scalar())
		return nil, false
	}
	if count == 0 {
		if n.Len() > 1 {
			rd.fail(i, fmt.Errorf("%w: list count 0 with %d items", ErrInvalidValue, n.Len()-1))
			return nil, false
		}
		return nil, true
	}
	if n.Len() != count+1 {
		rd.fail(i, fmt.Errorf("%w: list count %d with %d items", ErrMissing, count, max(n.Len()-1, 0)))
		return nil, false
	}
	return n.Elements()[1:], true
}

func (rd *Reader) invalid(i int, kind, v string) {
	rd.fail(i, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidValue, v, kind))
}

func (rd *Reader) fail(i int, err error) {
	if rd.err == nil {
		rd.err = nest(ErrorCodeDecoding, rd.typ, i, err)
	}
}
