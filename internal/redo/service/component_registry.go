package service

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Component is one live instance that recorded calls can be replayed against.
//
// ProxyFor names the component this one wraps, when the same logical component is
// registered twice: once as itself and once behind a refresh-capable proxy.
type Component struct {
	Name     string
	Instance any
	ProxyFor string
}

// ComponentRegistry holds the target types and live component instances known to the
// replay engine. The engine only reads it; registration happens at startup.
type ComponentRegistry struct {
	mu         sync.RWMutex
	targets    map[string]reflect.Type
	components []Component
	names      map[string]struct{}
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		targets: make(map[string]reflect.Type),
		names:   make(map[string]struct{}),
	}
}

// RegisterTarget declares a target type name. t is usually an interface type, or the
// concrete pointer type of a component.
func (r *ComponentRegistry) RegisterTarget(name string, t reflect.Type) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("target name is required")
	}
	if t == nil {
		return fmt.Errorf("nil type for target %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.targets[name]; ok && existing != t {
		return fmt.Errorf("target %q is already registered as %s", name, existing)
	}
	r.targets[name] = t
	return nil
}

// RegisterComponent adds a live instance. Component names are unique.
func (r *ComponentRegistry) RegisterComponent(c Component) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("component name is required")
	}
	if c.Instance == nil {
		return fmt.Errorf("component %q has a nil instance", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[c.Name]; exists {
		return fmt.Errorf("component %q is already registered", c.Name)
	}
	r.names[c.Name] = struct{}{}
	r.components = append(r.components, c)
	return nil
}

// Register declares a target named name with the dynamic type of instance and adds
// instance as a component under the same name.
func (r *ComponentRegistry) Register(name string, instance any) error {
	if instance == nil {
		return fmt.Errorf("component %q has a nil instance", name)
	}
	if err := r.RegisterTarget(name, reflect.TypeOf(instance)); err != nil {
		return err
	}
	return r.RegisterComponent(Component{Name: name, Instance: instance})
}

// TargetType returns the type registered under name.
func (r *ComponentRegistry) TargetType(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	return t, ok
}

// Lookup returns, in registration order, every component whose instance is assignable to t.
func (r *ComponentRegistry) Lookup(t reflect.Type) []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Component
	for _, c := range r.components {
		if reflect.TypeOf(c.Instance).AssignableTo(t) {
			out = append(out, c)
		}
	}
	return out
}
