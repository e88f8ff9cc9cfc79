package rda

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zeusync/rda/pkg/generic"
)

const (
	// DefaultDelimiters are used level by level, outermost first.
	DefaultDelimiters = "|;,^~`!:#@"
	// DefaultEscape prefixes delimiter and escape characters inside values.
	DefaultEscape = '\\'

	privateUseStart = '\uE000'
)

var (
	defaultCodec = mustCodec()
	bufferPool   = generic.NewResetPool(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b *bytes.Buffer) { b.Reset() },
	)
)

// Option configures a Codec.
type Option func(*Codec)

// WithDelimiters sets the level delimiters, outermost first.
func WithDelimiters(delims string) Option {
	return func(c *Codec) {
		c.delims = []rune(delims)
	}
}

// WithEscape sets the escape character.
func WithEscape(escape rune) Option {
	return func(c *Codec) {
		c.escape = escape
	}
}

// Codec converts trees to and from the delimited text form:
//
//	<D0><D1>...<Dn-1><E><D0><body>
//
// The header lists the delimiters used by each level and the escape
// character, closed by repeating D0. Parsing reads the delimiters from the
// header, so any codec can parse text produced by any other.
type Codec struct {
	delims []rune
	escape rune
}

// NewCodec validates the options and returns a codec.
func NewCodec(opts ...Option) (*Codec, error) {
	c := &Codec{
		delims: []rune(DefaultDelimiters),
		escape: DefaultEscape,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validateHeader(c.delims, c.escape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return c, nil
}

func mustCodec() *Codec {
	c, err := NewCodec()
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the codec with DefaultDelimiters and DefaultEscape.
func Default() *Codec {
	return defaultCodec
}

// Delimiters returns the configured delimiters.
func (c *Codec) Delimiters() string {
	return string(c.delims)
}

// Escape returns the configured escape character.
func (c *Codec) Escape() rune {
	return c.escape
}

// Marshal returns the text form of r. Only as many delimiters as the
// canonical depth of r needs are written to the header, so equivalent trees
// produce identical text. Scalars must be valid UTF-8.
func (c *Codec) Marshal(r *Rda) (string, error) {
	if r == nil {
		r = New()
	}
	depth := canonicalDimension(r)
	if depth > len(c.delims) {
		return "", fmt.Errorf("%w: need %d levels, have %d", ErrTooDeep, depth, len(c.delims))
	}
	if err := checkText(r, nil); err != nil {
		return "", err
	}
	return c.render(r, depth), nil
}

func (c *Codec) render(r *Rda, depth int) string {
	if depth == 0 {
		depth = 1
	}

	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	delims := c.delims[:depth]
	for _, d := range delims {
		buf.WriteRune(d)
	}
	buf.WriteRune(c.escape)
	buf.WriteRune(delims[0])

	w := writer{buf: buf, delims: delims, escape: c.escape}
	w.write(r, 0)
	return buf.String()
}

// widen returns c with private use characters appended until it has at
// least depth delimiters.
func (c *Codec) widen(depth int) *Codec {
	if depth <= len(c.delims) {
		return c
	}
	delims := append([]rune(nil), c.delims...)
	for ch := privateUseStart; len(delims) < depth; ch++ {
		if ch == c.escape || containsRune(delims, ch) {
			continue
		}
		delims = append(delims, ch)
	}
	return &Codec{delims: delims, escape: c.escape}
}

// Parse reads text produced by Marshal with any delimiter set.
func (c *Codec) Parse(text string) (*Rda, error) {
	return Parse(text)
}

// Marshal encodes r with the default codec.
func Marshal(r *Rda) (string, error) {
	return defaultCodec.Marshal(r)
}

// Parse decodes the text form. Single-child lists collapse into their child.
func Parse(text string) (*Rda, error) {
	delims, escape, body, err := parseHeader(text)
	if err != nil {
		return nil, err
	}
	p := parser{delims: delims, escape: escape}
	return p.parse(body, 0)
}

type writer struct {
	buf    *bytes.Buffer
	delims []rune
	escape rune
}

func (w writer) write(r *Rda, level int) {
	n := r.canonical()
	if n.IsScalar() {
		w.writeScalar(n.value)
		return
	}
	for i, child := range n.children {
		if i > 0 {
			w.buf.WriteRune(w.delims[level])
		}
		w.write(child, level+1)
	}
}

func (w writer) writeScalar(v string) {
	for _, ch := range v {
		if ch == w.escape || containsRune(w.delims, ch) {
			w.buf.WriteRune(w.escape)
		}
		w.buf.WriteRune(ch)
	}
}

type parser struct {
	delims []rune
	escape rune
}

func (p parser) parse(s string, level int) (*Rda, error) {
	for ; level < len(p.delims); level++ {
		parts, err := p.split(s, p.delims[level])
		if err != nil {
			return nil, err
		}
		if len(parts) == 1 {
			continue
		}
		out := &Rda{children: make([]*Rda, len(parts))}
		for i, part := range parts {
			child, err := p.parse(part, level+1)
			if err != nil {
				return nil, err
			}
			out.children[i] = child
		}
		return out, nil
	}
	v, err := p.unescape(s)
	if err != nil {
		return nil, err
	}
	return NewScalar(v), nil
}

func (p parser) split(s string, delim rune) ([]string, error) {
	var parts []string
	start := 0
	escaped := false
	for i, ch := range s {
		switch {
		case escaped:
			escaped = false
		case ch == p.escape:
			escaped = true
		case ch == delim:
			parts = append(parts, s[start:i])
			start = i + utf8.RuneLen(ch)
		}
	}
	if escaped {
		return nil, fmt.Errorf("%w: dangling escape", ErrMalformed)
	}
	return append(parts, s[start:]), nil
}

func (p parser) unescape(s string) (string, error) {
	if !strings.ContainsRune(s, p.escape) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, ch := range s {
		if !escaped && ch == p.escape {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(ch)
	}
	if escaped {
		return "", fmt.Errorf("%w: dangling escape", ErrMalformed)
	}
	return b.String(), nil
}

func parseHeader(text string) (delims []rune, escape rune, body string, err error) {
	if text == "" {
		return nil, 0, "", fmt.Errorf("%w: empty text", ErrMalformed)
	}
	first, size := utf8.DecodeRuneInString(text)
	if first == utf8.RuneError {
		return nil, 0, "", fmt.Errorf("%w: invalid utf-8 in header", ErrMalformed)
	}
	end := strings.IndexRune(text[size:], first)
	if end < 0 {
		return nil, 0, "", fmt.Errorf("%w: header is not closed", ErrMalformed)
	}
	inner := []rune(text[size : size+end])
	if len(inner) == 0 {
		return nil, 0, "", fmt.Errorf("%w: header has no escape character", ErrMalformed)
	}
	delims = append([]rune{first}, inner[:len(inner)-1]...)
	escape = inner[len(inner)-1]
	if err = validateHeader(delims, escape); err != nil {
		return nil, 0, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	body = text[size+end+utf8.RuneLen(first):]
	return delims, escape, body, nil
}

func validateHeader(delims []rune, escape rune) error {
	if len(delims) == 0 {
		return fmt.Errorf("no delimiters")
	}
	seen := make(map[rune]struct{}, len(delims)+1)
	for _, ch := range append(delims, escape) {
		if ch == utf8.RuneError || ch == 0 {
			return fmt.Errorf("invalid character %q", ch)
		}
		if _, dup := seen[ch]; dup {
			return fmt.Errorf("duplicate character %q", ch)
		}
		seen[ch] = struct{}{}
	}
	return nil
}

func canonicalDimension(r *Rda) int {
	n := r.canonical()
	if n.IsScalar() {
		return 0
	}
	deepest := 0
	for _, c := range n.children {
		if d := canonicalDimension(c); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// checkText reports the first scalar that is not valid UTF-8. Such bytes
// cannot be written rune by rune without being replaced.
func checkText(r *Rda, path []int) error {
	n := r.canonical()
	if n.IsScalar() {
		if !utf8.ValidString(n.value) {
			return fmt.Errorf("%w: scalar at %v holds %q", ErrInvalidText, path, n.value)
		}
		return nil
	}
	for i, child := range n.children {
		if err := checkText(child, append(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func containsRune(set []rune, ch rune) bool {
	for _, r := range set {
		if r == ch {
			return true
		}
	}
	return false
}
