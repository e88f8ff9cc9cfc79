package encoding

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zeusync/rda/pkg/rda"
)

const envelopeType = "envelope"

// Factory returns a new, empty value ready for FromRda.
type Factory func() Serializable

// Registry maps type names to factories so that values of different types
// can be stored behind Serializable and restored without the caller knowing
// the concrete type. Wrapped values are two-slot envelopes: the registered
// name and the value's own encoding.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	names     map[reflect.Type]string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		names:     make(map[reflect.Type]string),
	}
}

// Register adds factory under name. Both the name and the concrete type
// returned by the factory must be new to the registry.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidValue)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrNilValue, name)
	}
	sample := factory()
	if isNil(sample) {
		return fmt.Errorf("%w: factory for %s returned nil", ErrNilValue, name)
	}
	typ := reflect.TypeOf(sample)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	if prev, exists := r.names[typ]; exists {
		return fmt.Errorf("%w: %s is already registered as %s", ErrAlreadyRegistered, typ, prev)
	}
	r.factories[name] = factory
	r.names[typ] = name
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// RegisterType registers *T under name.
func RegisterType[T any, PT Ptr[T]](r *Registry, name string) error {
	return r.Register(name, func() Serializable { return PT(new(T)) })
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// NameOf returns the name s's concrete type is registered under.
func (r *Registry) NameOf(s Serializable) (string, error) {
	if isNil(s) {
		return "", ErrNilValue
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[reflect.TypeOf(s)]
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrUnknownType, s)
	}
	return name, nil
}

// Wrap encodes s into an envelope carrying its registered name.
func (r *Registry) Wrap(s Serializable) (*rda.Rda, error) {
	name, err := r.NameOf(s)
	if err != nil {
		return nil, NewEncodingError(typeName(s), "", err)
	}
	body, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return rda.NewList(rda.NewScalar(name), body), nil
}

// Unwrap decodes an envelope produced by Wrap into a new value of the
// registered type.
func (r *Registry) Unwrap(env *rda.Rda) (Serializable, error) {
	rd := NewReader(envelopeType, env, 2)
	name := rd.String(0)
	body := rd.Raw(1)
	if err := rd.Err(); err != nil {
		return nil, err
	}
	factory, ok := r.Lookup(name)
	if !ok {
		return nil, NewDecodingError(envelopeType, slotPath(0), fmt.Errorf("%w: %q", ErrUnknownType, name))
	}
	out := factory()
	if isNil(out) {
		return nil, NewDecodingError(envelopeType, slotPath(0), fmt.Errorf("%w: factory for %q returned nil", ErrNilValue, name))
	}
	if err := out.FromRda(body); err != nil {
		return nil, asDecodingError(out, err)
	}
	return out, nil
}
