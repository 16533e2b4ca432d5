package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when no factory is registered under a name.
var ErrNotFound = errors.New("tool: not found")

// Descriptor describes a tool without instantiating it.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Stage       Stage          `json:"stage"`
}

// Factory creates a fresh tool instance from its settings. Settings may be
// nil when the tool is not configured.
type Factory func(settings map[string]any) (Tool, error)

type entry struct {
	desc    Descriptor
	factory Factory
}

// Registry is an explicit table of tool factories. Every agent gets its own
// instance from Create, so tools may keep per-agent state.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	order    []string
	settings map[string]map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  map[string]entry{},
		settings: map[string]map[string]any{},
	}
}

// Register adds a factory. Names must be unique.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.Name == "" {
		return errors.New("tool: descriptor name is required")
	}

	if factory == nil {
		return fmt.Errorf("tool: nil factory for %q", desc.Name)
	}

	if desc.Stage == "" {
		desc.Stage = PreProcess
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("tool: %q already registered", desc.Name)
	}

	r.entries[desc.Name] = entry{desc: desc, factory: factory}
	r.order = append(r.order, desc.Name)

	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(desc Descriptor, factory Factory) {
	if err := r.Register(desc, factory); err != nil {
		panic(err)
	}
}

// RegisterTool registers a ready-made stateless tool; Create returns it as is.
func (r *Registry) RegisterTool(t Tool) error {
	return r.Register(DescriptorOf(t), func(map[string]any) (Tool, error) { return t, nil })
}

// Configure stores per-tool settings passed to factories. It returns the
// configured names that have no registered factory, sorted.
func (r *Registry) Configure(settings map[string]map[string]any) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var unknown []string

	for name, s := range settings {
		r.settings[name] = s
		if _, ok := r.entries[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	sort.Strings(unknown)

	return unknown
}

// Create instantiates the named tool with its configured settings.
func (r *Registry) Create(name string) (Tool, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	settings := r.settings[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	t, err := e.factory(settings)
	if err != nil {
		return nil, fmt.Errorf("tool: create %q: %w", name, err)
	}

	return t, nil
}

// Has reports whether a factory is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]

	return ok
}

// Descriptors lists registered tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}

	return out
}

// DescriptorOf describes an existing tool.
func DescriptorOf(t Tool) Descriptor {
	return Descriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
		Stage:       t.Stage(),
	}
}
