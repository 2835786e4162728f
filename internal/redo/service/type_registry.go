package service

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"
)

// ContainerKind classifies a generic container name.
type ContainerKind int

const (
	// ContainerList is an ordered collection; decoded as a slice in payload order.
	ContainerList ContainerKind = iota + 1
	// ContainerSet is a collection of unique elements; decoded as a slice in first-occurrence order.
	ContainerSet
	// ContainerMap is a keyed collection; decoded as a Go map.
	ContainerMap
)

var anyType = reflect.TypeFor[any]()

// TypeRegistry maps type names found in recorded signatures to codecs and container kinds.
// It is safe for concurrent use; registration is expected at startup.
type TypeRegistry struct {
	mu         sync.RWMutex
	codecs     map[string]Codec
	containers map[string]ContainerKind
}

// NewTypeRegistry returns a registry holding the built-in scalar and container names.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		codecs:     make(map[string]Codec),
		containers: make(map[string]ContainerKind),
	}
	r.registerBuiltins()
	return r
}

// RegisterType registers a JSON-backed codec for t under name.
func (r *TypeRegistry) RegisterType(name string, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("nil type for %q", name)
	}
	return r.RegisterCodec(name, NewJSONCodec(t))
}

// RegisterCodec registers a custom codec under name. Registering a name twice fails.
func (r *TypeRegistry) RegisterCodec(name string, codec Codec) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("type name is required")
	}
	if codec == nil {
		return fmt.Errorf("nil codec for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codecs[name]; exists {
		return fmt.Errorf("type %q is already registered", name)
	}
	if _, exists := r.containers[name]; exists {
		return fmt.Errorf("type %q is already registered as a container", name)
	}
	r.codecs[name] = codec
	return nil
}

// RegisterContainer registers a generic container name.
func (r *TypeRegistry) RegisterContainer(name string, kind ContainerKind) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("container name is required")
	}
	if kind < ContainerList || kind > ContainerMap {
		return fmt.Errorf("invalid container kind %d for %q", kind, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[name]; exists {
		return fmt.Errorf("container %q is already registered", name)
	}
	if _, exists := r.codecs[name]; exists {
		return fmt.Errorf("container %q is already registered as a type", name)
	}
	r.containers[name] = kind
	return nil
}

// Codec returns the codec registered under name.
func (r *TypeRegistry) Codec(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// Container returns the container kind registered under name.
func (r *TypeRegistry) Container(name string) (ContainerKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.containers[name]
	return k, ok
}

// Resolve returns the Go type a value of the descriptor decodes to.
func (r *TypeRegistry) Resolve(d Descriptor) (reflect.Type, error) {
	switch d.Shape {
	case ShapeScalar:
		return r.resolveScalar(d.Name)
	case ShapeArray:
		elem, err := r.Resolve(ParseType(d.Elem()))
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case ShapeContainer1:
		kind, ok := r.Container(d.Name)
		if !ok {
			return nil, fmt.Errorf("%w: container %q", ErrUnknownType, d.Name)
		}
		if kind == ContainerMap {
			return nil, fmt.Errorf("%w: map container %q needs key and value types", ErrShapeMismatch, d.Name)
		}
		elem, err := r.Resolve(ParseType(d.Elem()))
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case ShapeContainer2:
		kind, ok := r.Container(d.Name)
		if !ok {
			return nil, fmt.Errorf("%w: container %q", ErrUnknownType, d.Name)
		}
		if kind != ContainerMap {
			return nil, fmt.Errorf("%w: container %q takes a single type parameter", ErrShapeMismatch, d.Name)
		}
		key, err := r.Resolve(ParseType(d.Key()))
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, fmt.Errorf("%w: map key type %s is not comparable", ErrShapeMismatch, key)
		}
		value, err := r.Resolve(ParseType(d.Value()))
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, value), nil
	default:
		return nil, fmt.Errorf("%w: shape %s", ErrUnknownType, d.Shape)
	}
}

// resolveScalar also accepts a bare container name, which decodes to an untyped
// slice or a string-keyed map.
func (r *TypeRegistry) resolveScalar(name string) (reflect.Type, error) {
	if c, ok := r.Codec(name); ok {
		return c.Type(), nil
	}
	if kind, ok := r.Container(name); ok {
		if kind == ContainerMap {
			return reflect.MapOf(reflect.TypeFor[string](), anyType), nil
		}
		return reflect.SliceOf(anyType), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

func (r *TypeRegistry) registerBuiltins() {
	scalars := map[string]reflect.Type{
		// Go names.
		"string":          reflect.TypeFor[string](),
		"bool":            reflect.TypeFor[bool](),
		"int":             reflect.TypeFor[int](),
		"int8":            reflect.TypeFor[int8](),
		"int16":           reflect.TypeFor[int16](),
		"int32":           reflect.TypeFor[int32](),
		"int64":           reflect.TypeFor[int64](),
		"uint":            reflect.TypeFor[uint](),
		"uint8":           reflect.TypeFor[uint8](),
		"byte":            reflect.TypeFor[byte](),
		"uint16":          reflect.TypeFor[uint16](),
		"uint32":          reflect.TypeFor[uint32](),
		"uint64":          reflect.TypeFor[uint64](),
		"float32":         reflect.TypeFor[float32](),
		"float64":         reflect.TypeFor[float64](),
		"any":             anyType,
		"interface{}":     anyType,
		"time.Time":       reflect.TypeFor[time.Time](),
		"time.Duration":   reflect.TypeFor[time.Duration](),
		"json.RawMessage": reflect.TypeFor[json.RawMessage](),
		"json.Number":     reflect.TypeFor[json.Number](),
		"*big.Int":        reflect.TypeFor[*big.Int](),

		// Portable names written by JVM producers.
		"java.lang.String":     reflect.TypeFor[string](),
		"java.lang.Boolean":    reflect.TypeFor[bool](),
		"boolean":              reflect.TypeFor[bool](),
		"java.lang.Byte":       reflect.TypeFor[int8](),
		"java.lang.Short":      reflect.TypeFor[int16](),
		"short":                reflect.TypeFor[int16](),
		"java.lang.Integer":    reflect.TypeFor[int32](),
		"java.lang.Long":       reflect.TypeFor[int64](),
		"long":                 reflect.TypeFor[int64](),
		"java.lang.Float":      reflect.TypeFor[float32](),
		"float":                reflect.TypeFor[float32](),
		"java.lang.Double":     reflect.TypeFor[float64](),
		"double":               reflect.TypeFor[float64](),
		"java.lang.Object":     anyType,
		"java.math.BigDecimal": reflect.TypeFor[json.Number](),
		"java.math.BigInteger": reflect.TypeFor[*big.Int](),
	}
	for name, t := range scalars {
		r.codecs[name] = NewJSONCodec(t)
	}
	r.codecs["char"] = charCodec{}
	r.codecs["java.lang.Character"] = charCodec{}

	containers := map[string]ContainerKind{
		"list":                                   ContainerList,
		"set":                                    ContainerSet,
		"map":                                    ContainerMap,
		"java.util.Collection":                   ContainerList,
		"java.util.List":                         ContainerList,
		"java.util.ArrayList":                    ContainerList,
		"java.util.LinkedList":                   ContainerList,
		"java.util.Set":                          ContainerSet,
		"java.util.HashSet":                      ContainerSet,
		"java.util.LinkedHashSet":                ContainerSet,
		"java.util.TreeSet":                      ContainerSet,
		"java.util.Map":                          ContainerMap,
		"java.util.HashMap":                      ContainerMap,
		"java.util.LinkedHashMap":                ContainerMap,
		"java.util.TreeMap":                      ContainerMap,
		"java.util.concurrent.ConcurrentHashMap": ContainerMap,
	}
	for name, kind := range containers {
		r.containers[name] = kind
	}
}
