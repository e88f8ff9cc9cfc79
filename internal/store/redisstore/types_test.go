package redisstore

import (
	"github.com/zeusync/rda/pkg/encoding"
	"github.com/zeusync/rda/pkg/rda"
)

type pair struct {
	A, B string
}

func (p *pair) ToRda() (*rda.Rda, error) {
	w := encoding.NewWriter("Pair")
	w.String(0, p.A)
	w.String(1, p.B)
	return w.Rda()
}

func (p *pair) FromRda(r *rda.Rda) error {
	rd := encoding.NewReader("Pair", r, 2)
	a, b := rd.String(0), rd.String(1)
	if err := rd.Err(); err != nil {
		return err
	}
	p.A, p.B = a, b
	return nil
}
