package command

import (
	"fmt"
	"sync"
)

// Entry is one registered command.
type Entry struct {
	Name    string  // key the command is dispatched by
	ID      string  // fully-qualified id, e.g. console.commands.echo
	Source  string  // catalog the command came from
	Command Command // the single instance owned by the registry
}

// Description returns the command's help text, if it has one.
func (e Entry) Description() string {
	if d, ok := e.Command.(Describer); ok {
		return d.Description()
	}
	return ""
}

// Registry maps command names to instances, preserving discovery order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// Add registers an entry. The name defaults to the last segment of the id
// and must match it when both are set.
func (r *Registry) Add(entry Entry) error {
	if entry.Command == nil {
		return fmt.Errorf("add %q: nil command", entry.ID)
	}
	if entry.Name == "" {
		entry.Name = NameOf(entry.ID)
	}
	if entry.Name == "" {
		return fmt.Errorf("add: command has no name")
	}
	if entry.ID != "" && NameOf(entry.ID) != entry.Name {
		return fmt.Errorf("add %q: name %q does not match id", entry.ID, entry.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byName[entry.Name]; ok {
		return fmt.Errorf("add %q: name %q already registered by %s", entry.ID, entry.Name, r.entries[i].ID)
	}
	r.byName[entry.Name] = len(r.entries)
	r.entries = append(r.entries, entry)
	return nil
}

// Lookup finds a command by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Entries returns a copy of all entries in discovery order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names returns the registered names in discovery order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
