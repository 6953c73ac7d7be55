package pool

import (
	"errors"
	"fmt"
	"github.com/ZenLiuCN/fn"
	"slices"
	"sync"
)

type (
	// Slots is a fixed set of reusable objects addressed by index, such as one descriptor per frame in flight.
	//
	// Every object is built up front and owned by Slots. Get never allocates and never locks:
	// each index must be driven by a single owner at a time.
	Slots[T any] struct {
		name  string
		slots []T
	}
	// Registry holds one Slots per named object kind.
	Registry struct {
		sync.RWMutex
		pools map[string]any
	}
	// IndexError reports an index outside [0, size).
	IndexError struct {
		Name  string
		Index int
		Size  int
	}
)

var (
	ErrIndexOutOfRange  = errors.New("pool index out of range")
	ErrCapacityMismatch = errors.New("pool requested with another capacity")
	ErrKindMismatch     = errors.New("pool requested with another object type")
	ErrInvalidCapacity  = errors.New("pool capacity must be positive")
	ErrMissingFactory   = errors.New("pool factory is nil")
)

func (e *IndexError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: index %d, size %d", ErrIndexOutOfRange, e.Index, e.Size)
	}
	return fmt.Sprintf("%s: %s index %d, size %d", ErrIndexOutOfRange, e.Name, e.Index, e.Size)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// New builds capacity objects with factory.
func New[T any](capacity int, factory func() T) (*Slots[T], error) {
	return build("", capacity, factory)
}

func build[T any](name string, capacity int, factory func() T) (*Slots[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if factory == nil {
		return nil, ErrMissingFactory
	}
	s := &Slots[T]{name: name, slots: make([]T, capacity)}
	for i := range s.slots {
		s.slots[i] = factory()
	}
	return s, nil
}

// Get returns the object of index, the same one on every call.
func (s *Slots[T]) Get(index int) (v T, err error) {
	if index < 0 || index >= len(s.slots) {
		return v, &IndexError{Name: s.name, Index: index, Size: len(s.slots)}
	}
	return s.slots[index], nil
}

// MustGet is Get that panics with an *IndexError.
func (s *Slots[T]) MustGet(index int) T {
	v, err := s.Get(index)
	if err != nil {
		panic(err)
	}
	return v
}

// Len is the fixed capacity.
func (s *Slots[T]) Len() int {
	return len(s.slots)
}

// Each visits every object in index order, e.g. to reset all of them after a resize.
func (s *Slots[T]) Each(f func(index int, v T)) {
	for i, v := range s.slots {
		f(i, v)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]any)}
}

// Of returns the object of index from the pool of name, creating poolSize objects with factory
// on the first request for name.
//
// A later request with another poolSize fails with ErrCapacityMismatch, with another T with
// ErrKindMismatch. The registry lock only covers the name lookup.
func Of[T any](r *Registry, name string, poolSize, index int, factory func() T) (v T, err error) {
	s, err := slotsOf(r, name, poolSize, factory)
	if err != nil {
		return
	}
	return s.Get(index)
}

// SlotsOf returns the pool of name, creating it like Of.
func SlotsOf[T any](r *Registry, name string, poolSize int, factory func() T) (*Slots[T], error) {
	return slotsOf(r, name, poolSize, factory)
}

func slotsOf[T any](r *Registry, name string, poolSize int, factory func() T) (s *Slots[T], err error) {
	r.RLock()
	p, ok := r.pools[name]
	r.RUnlock()
	if !ok {
		r.Lock()
		if p, ok = r.pools[name]; !ok {
			if s, err = build(name, poolSize, factory); err != nil {
				r.Unlock()
				return
			}
			if r.pools == nil {
				r.pools = make(map[string]any)
			}
			r.pools[name] = s
			r.Unlock()
			return
		}
		r.Unlock()
	}
	if s, ok = p.(*Slots[T]); !ok {
		return nil, fmt.Errorf("%w: %s holds %T", ErrKindMismatch, name, p)
	}
	if s.Len() != poolSize {
		return nil, fmt.Errorf("%w: %s has %d, requested %d", ErrCapacityMismatch, name, s.Len(), poolSize)
	}
	return
}

// Names lists the registered pools, sorted.
func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()
	n := fn.MapKeys(r.pools)
	slices.Sort(n)
	return n
}
