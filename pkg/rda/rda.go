// Package rda implements the recursive delimited array: the intermediate
// representation that serializable values are encoded to and decoded from.
package rda

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Rda is a recursive, ordered container. A node is either a scalar holding a
// string value or a composite holding child nodes addressed by position.
//
// Two nodes are equivalent when their text forms are identical: a composite
// with exactly one child is equivalent to that child, and an empty composite
// is equivalent to the empty scalar.
//
// Rda is not safe for concurrent mutation.
type Rda struct {
	value    string
	children []*Rda
}

// New returns an empty scalar node.
func New() *Rda {
	return &Rda{}
}

// NewScalar returns a scalar node holding v.
func NewScalar(v string) *Rda {
	return &Rda{value: v}
}

// NewList returns a composite node with the given children. Nil children are
// stored as empty scalars.
func NewList(children ...*Rda) *Rda {
	r := &Rda{children: make([]*Rda, len(children))}
	for i, c := range children {
		if c == nil {
			c = New()
		}
		r.children[i] = c
	}
	return r
}

// IsScalar reports whether r has no children.
func (r *Rda) IsScalar() bool {
	return len(r.children) == 0
}

// Len returns the number of children. Scalars have length 0.
func (r *Rda) Len() int {
	return len(r.children)
}

// Scalar returns the scalar value of r. For a composite it is the scalar value
// of the first child.
func (r *Rda) Scalar() string {
	n := r
	for len(n.children) > 0 {
		n = n.children[0]
	}
	return n.value
}

// SetScalar turns r into a scalar holding v.
func (r *Rda) SetScalar(v string) {
	r.value = v
	r.children = nil
}

// Elem returns the child at index i, growing r with empty scalars when i is
// past the end. A non-empty scalar is promoted first so that its value
// becomes child 0.
func (r *Rda) Elem(i int) *Rda {
	if i < 0 {
		panic("rda: negative index")
	}
	r.grow(i + 1)
	return r.children[i]
}

// At returns the child at index i without growing r.
func (r *Rda) At(i int) (*Rda, bool) {
	if i < 0 || i >= len(r.children) {
		return nil, false
	}
	return r.children[i], true
}

// Set stores child at index i, growing r as Elem does.
func (r *Rda) Set(i int, child *Rda) {
	if i < 0 {
		panic("rda: negative index")
	}
	if child == nil {
		child = New()
	}
	r.grow(i + 1)
	r.children[i] = child
}

// Append adds children after the last slot.
func (r *Rda) Append(children ...*Rda) {
	r.promote()
	for _, c := range children {
		if c == nil {
			c = New()
		}
		r.children = append(r.children, c)
	}
}

// Elements returns a copy of the child slice.
func (r *Rda) Elements() []*Rda {
	out := make([]*Rda, len(r.children))
	copy(out, r.children)
	return out
}

// Dimension is 0 for a scalar and 1 + the deepest child otherwise.
func (r *Rda) Dimension() int {
	if len(r.children) == 0 {
		return 0
	}
	deepest := 0
	for _, c := range r.children {
		if d := c.Dimension(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Clone returns a deep copy of r.
func (r *Rda) Clone() *Rda {
	if r == nil {
		return nil
	}
	out := &Rda{value: r.value}
	if len(r.children) > 0 {
		out.children = make([]*Rda, len(r.children))
		for i, c := range r.children {
			out.children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports whether r and other are equivalent.
func (r *Rda) Equal(other *Rda) bool {
	if r == nil || other == nil {
		return r == other
	}
	a, b := r.canonical(), other.canonical()
	if a.IsScalar() || b.IsScalar() {
		return a.IsScalar() && b.IsScalar() && a.value == b.value
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !a.children[i].Equal(b.children[i]) {
			return false
		}
	}
	return true
}

// Sum64 returns an xxhash fingerprint of the canonical structure and the
// exact scalar bytes. Equivalent nodes have equal sums, whatever their depth.
func (r *Rda) Sum64() uint64 {
	if r == nil {
		r = New()
	}
	d := xxhash.New()
	r.digest(d)
	return d.Sum64()
}

func (r *Rda) digest(d *xxhash.Digest) {
	var size [9]byte
	n := r.canonical()
	if n.IsScalar() {
		size[0] = 's'
		binary.BigEndian.PutUint64(size[1:], uint64(len(n.value)))
		_, _ = d.Write(size[:])
		_, _ = d.WriteString(n.value)
		return
	}
	size[0] = 'l'
	binary.BigEndian.PutUint64(size[1:], uint64(len(n.children)))
	_, _ = d.Write(size[:])
	for _, c := range n.children {
		c.digest(d)
	}
}

// String returns the text form produced by the default codec. Trees deeper
// than DefaultDelimiters get extra private use delimiters, and bytes that are
// not valid UTF-8 are replaced, so String never fails. Use Codec.Marshal when
// the text must parse back exactly.
func (r *Rda) String() string {
	if r == nil {
		r = New()
	}
	depth := canonicalDimension(r)
	return defaultCodec.widen(depth).render(r, depth)
}

// Canonical returns the node r is equivalent to once single-child wrappers
// are skipped. It shares storage with r.
func (r *Rda) Canonical() *Rda {
	return r.canonical()
}

func (r *Rda) canonical() *Rda {
	n := r
	for len(n.children) == 1 {
		n = n.children[0]
	}
	return n
}

func (r *Rda) promote() {
	if len(r.children) > 0 {
		return
	}
	if r.value != "" {
		r.children = []*Rda{NewScalar(r.value)}
		r.value = ""
	}
}

func (r *Rda) grow(n int) {
	r.promote()
	for len(r.children) < n {
		r.children = append(r.children, New())
	}
}
