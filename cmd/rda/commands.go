package main

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/rda/examples/people"
	"github.com/zeusync/rda/internal/injector"
	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/internal/store"
	"github.com/zeusync/rda/pkg/encoding"
	"github.com/zeusync/rda/pkg/rda"
)

var errCheckFailed = errors.New("round trip check failed")

func (e *env) parseInput(ctx *cli.Context) (*rda.Rda, error) {
	text, err := e.readInput(ctx)
	if err != nil {
		return nil, err
	}
	r, err := rda.Parse(text)
	if err != nil {
		return nil, err
	}
	e.log.Debug("parsed input", log.Int("bytes", len(text)), log.Int("dimension", r.Dimension()))
	return r, nil
}

func (e *env) fmtAction(ctx *cli.Context) error {
	r, err := e.parseInput(ctx)
	if err != nil {
		return err
	}

	codecCfg := e.cfg.Codec
	if ctx.IsSet("delims") {
		codecCfg.Delimiters = ctx.String("delims")
	}
	if ctx.IsSet("escape") {
		codecCfg.Escape = ctx.String("escape")
	}
	codec, err := codecCfg.Build()
	if err != nil {
		return err
	}

	text, err := codec.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, text)
	return err
}

func (e *env) inspectAction(ctx *cli.Context) error {
	r, err := e.parseInput(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(e.out)
	enc.SetIndent(2)
	if err = enc.Encode(tree(r.Canonical())); err != nil {
		return err
	}
	return enc.Close()
}

// tree converts r to strings and nested slices for YAML output.
func tree(r *rda.Rda) any {
	if r.IsScalar() {
		return r.Scalar()
	}
	out := make([]any, 0, r.Len())
	for _, child := range r.Elements() {
		out = append(out, tree(child.Canonical()))
	}
	return out
}

func (e *env) hashAction(ctx *cli.Context) error {
	r, err := e.parseInput(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.out, "%016x\n", r.Sum64())
	return err
}

func (e *env) checkAction(ctx *cli.Context) error {
	values, fresh := people.Samples()
	failed := 0
	for i, v := range values {
		name := fmt.Sprintf("%T", v)
		if err := encoding.RoundTrip(v, fresh[i]); err != nil {
			failed++
			e.log.Error("round trip failed", log.String("type", name), log.Error(err))
			fmt.Fprintf(e.out, "FAIL %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(e.out, "ok   %s\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d types", errCheckFailed, failed, len(values))
	}
	if !ctx.Bool("store") {
		return nil
	}
	return e.checkStore(values)
}

// checkStore writes every sample under a fresh key and reads it back into a
// fresh value, then does the same through registry envelopes. All keys are
// removed again.
func (e *env) checkStore(values []encoding.Serializable) error {
	_, fresh := people.Samples()
	return e.withStore(func(s *store.Store) error {
		ctx := context.Background()
		limit := e.cfg.Store.Concurrency
		plain := make([]string, len(values))
		wrapped := make([]string, len(values))
		items := make(map[string]encoding.Serializable, len(values))
		for i, v := range values {
			plain[i], wrapped[i] = store.NewKey(), store.NewKey()
			items[plain[i]] = v
		}
		defer func() {
			for _, key := range append(plain, wrapped...) {
				if err := s.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
					e.log.Warn("removing check key", log.String("key", key), log.Error(err))
				}
			}
		}()

		if err := store.PutAll(ctx, s, items, limit); err != nil {
			return err
		}
		for i, key := range plain {
			if err := s.Get(ctx, key, fresh[i]); err != nil {
				return err
			}
			if err := e.sameEncoding(values[i], fresh[i], "via"); err != nil {
				return err
			}
		}

		for i, key := range wrapped {
			if err := s.Save(ctx, key, values[i]); err != nil {
				return err
			}
		}
		loaded, err := store.LoadAll(ctx, s, wrapped, limit)
		if err != nil {
			return err
		}
		for i, v := range loaded {
			if err := e.sameEncoding(values[i], v, "enveloped via"); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *env) sameEncoding(want, got encoding.Serializable, how string) error {
	a, err := encoding.Encode(want)
	if err != nil {
		return err
	}
	b, err := encoding.Encode(got)
	if err != nil {
		return err
	}
	if !a.Equal(b) {
		return fmt.Errorf("%w: %T differs %s %s", errCheckFailed, want, how, e.cfg.Store.Backend)
	}
	_, err = fmt.Fprintf(e.out, "ok   %T %s %s\n", want, how, e.cfg.Store.Backend)
	return err
}

func (e *env) withStore(fn func(s *store.Store) error) error {
	s, cleanup, err := injector.InitializeStore(e.cfg, e.log)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(s)
}

func (e *env) keysAction(*cli.Context) error {
	return e.withStore(func(s *store.Store) error {
		keys, err := s.Keys(context.Background())
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(e.out, key)
		}
		return nil
	})
}

func (e *env) catAction(ctx *cli.Context) error {
	key := ctx.Args().First()
	return e.withStore(func(s *store.Store) error {
		text, err := s.Raw(context.Background(), key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.out, text)
		return err
	})
}

func (e *env) rmAction(ctx *cli.Context) error {
	key := ctx.Args().First()
	return e.withStore(func(s *store.Store) error {
		return s.Delete(context.Background(), key)
	})
}
