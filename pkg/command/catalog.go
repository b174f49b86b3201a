package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Catalog lists the type identifiers available under a namespace and
// instantiates them. Implementations are the storage backends discovery runs
// against: the compiled-in Static catalog, and the directory and archive
// catalogs in package plugin.
type Catalog interface {
	// Name identifies the catalog in reports and logs.
	Name() string

	// List returns the identifiers directly under namespace. An error means
	// the namespace could not be enumerated at all.
	List(ctx context.Context, namespace string) ([]string, error)

	// Load instantiates the type with the given identifier using its
	// no-argument constructor. The value need not implement Command.
	Load(ctx context.Context, id string) (any, error)
}

// Factory is a no-argument constructor registered with a Static catalog.
type Factory func() (any, error)

// New returns a Factory producing a fresh *T.
func New[T any]() Factory {
	return func() (any, error) {
		return new(T), nil
	}
}

// Static is a catalog populated in code, typically from init functions.
type Static struct {
	name      string
	mu        sync.RWMutex
	ids       []string
	factories map[string]Factory
}

// NewStatic creates an empty compiled-in catalog.
func NewStatic(name string) *Static {
	return &Static{
		name:      name,
		factories: make(map[string]Factory),
	}
}

// Name implements Catalog.
func (s *Static) Name() string {
	return s.name
}

// Register adds a constructor under a fully-qualified id such as
// "console.commands.echo".
func (s *Static) Register(id string, factory Factory) error {
	if err := validateID(id); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factories[id]; ok {
		return fmt.Errorf("register %s: duplicate id", id)
	}
	s.ids = append(s.ids, id)
	s.factories[id] = factory
	return nil
}

// MustRegister is Register for init functions; it panics on a bad or duplicate id.
func (s *Static) MustRegister(id string, factory Factory) {
	if err := s.Register(id, factory); err != nil {
		panic(err)
	}
}

// List implements Catalog. Ids come back in registration order.
func (s *Static) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.ids {
		if InNamespace(id, namespace) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Load implements Catalog.
func (s *Static) Load(ctx context.Context, id string) (any, error) {
	s.mu.RLock()
	factory, ok := s.factories[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: not registered", id)
	}
	return factory()
}

var builtins = NewStatic("builtin")

// Register adds a constructor to the process-wide compiled-in catalog.
// It panics on duplicates, so call it from init.
func Register(id string, factory Factory) {
	builtins.MustRegister(id, factory)
}

// Builtins returns the process-wide compiled-in catalog.
func Builtins() *Static {
	return builtins
}

// NameOf returns the command name for a fully-qualified id: its last
// dot-separated segment.
func NameOf(id string) string {
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// InNamespace reports whether id sits directly under namespace.
func InNamespace(id, namespace string) bool {
	if namespace == "" {
		return !strings.Contains(id, ".")
	}
	rest, ok := strings.CutPrefix(id, namespace+".")
	return ok && rest != "" && !strings.Contains(rest, ".")
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty command id")
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("command id %q contains whitespace", id)
	}
	if strings.HasSuffix(id, ".") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("command id %q has an empty segment", id)
	}
	return nil
}
