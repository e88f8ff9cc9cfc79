package encoding

import (
	"errors"
	"io"
	"time"

	"github.com/zeusync/rda/pkg/rda"
)

type point struct {
	X, Y int
}

func (p *point) ToRda() (*rda.Rda, error) {
	w := NewWriter("Point")
	w.Int(0, int64(p.X))
	w.Int(1, int64(p.Y))
	return w.Rda()
}

func (p *point) FromRda(r *rda.Rda) error {
	rd := NewReader("Point", r, 2)
	x, y := rd.Int(0), rd.Int(1)
	if err := rd.Err(); err != nil {
		return err
	}
	p.X, p.Y = int(x), int(y)
	return nil
}

type address struct {
	Lines string
	Zip   string
}

func (a *address) ToRda() (*rda.Rda, error) {
	w := NewWriter("Address")
	w.String(0, a.Lines)
	w.String(1, a.Zip)
	return w.Rda()
}

func (a *address) FromRda(r *rda.Rda) error {
	rd := NewReader("Address", r, 2)
	lines, zip := rd.String(0), rd.String(1)
	if err := rd.Err(); err != nil {
		return err
	}
	a.Lines, a.Zip = lines, zip
	return nil
}

type person struct {
	First     string
	Last      string
	Home      address
	Tags      []string
	Born      time.Time
	Score     float64
	Active    bool
	Avatar    []byte
	Previous  []address
	SessionID uint64
}

func (p *person) ToRda() (*rda.Rda, error) {
	w := NewWriter("Person")
	w.String(0, p.First)
	w.String(1, p.Last)
	w.Object(2, &p.Home)
	w.Strings(3, p.Tags)
	w.Time(4, p.Born)
	w.Float(5, p.Score)
	w.Bool(6, p.Active)
	w.Bytes(7, p.Avatar)
	WriteObjects(w, 8, addressPtrs(p.Previous))
	w.Uint(9, p.SessionID)
	return w.Rda()
}

func (p *person) FromRda(r *rda.Rda) error {
	rd := NewReader("Person", r, 10)
	var next person
	next.First = rd.String(0)
	next.Last = rd.String(1)
	rd.Object(2, &next.Home)
	next.Tags = rd.Strings(3)
	next.Born = rd.Time(4)
	next.Score = rd.Float(5)
	next.Active = rd.Bool(6)
	next.Avatar = rd.Bytes(7)
	next.Previous = ReadObjects[address](rd, 8)
	next.SessionID = rd.Uint(9)
	if err := rd.Err(); err != nil {
		return err
	}
	*p = next
	return nil
}

func addressPtrs(in []address) []*address {
	out := make([]*address, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

// label has a single field and exercises the collapsed text form.
type label struct {
	Text string
}

func (l *label) ToRda() (*rda.Rda, error) {
	w := NewWriter("Label")
	w.String(0, l.Text)
	return w.Rda()
}

func (l *label) FromRda(r *rda.Rda) error {
	rd := NewReader("Label", r, 1)
	text := rd.String(0)
	if err := rd.Err(); err != nil {
		return err
	}
	l.Text = text
	return nil
}

// handle holds a resource with no representable form.
type handle struct {
	Name string
	Conn io.Closer
}

var errOpenHandle = errors.New("open connection cannot be encoded")

func (h *handle) ToRda() (*rda.Rda, error) {
	w := NewWriter("Handle")
	w.String(0, h.Name)
	if h.Conn != nil {
		w.Fail(1, errOpenHandle)
	}
	return w.Rda()
}

func (h *handle) FromRda(r *rda.Rda) error {
	rd := NewReader("Handle", r, 2)
	name := rd.String(0)
	if err := rd.Err(); err != nil {
		return err
	}
	h.Name, h.Conn = name, nil
	return nil
}

// sloppy mutates its receiver before validating, which Restore guards against.
type sloppy struct {
	A, B int
}

func (s *sloppy) ToRda() (*rda.Rda, error) {
	w := NewWriter("Sloppy")
	w.Int(0, int64(s.A))
	w.Int(1, int64(s.B))
	return w.Rda()
}

func (s *sloppy) FromRda(r *rda.Rda) error {
	rd := NewReader("Sloppy", r, 2)
	s.A = int(rd.Int(0))
	s.B = int(rd.Int(1))
	return rd.Err()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
