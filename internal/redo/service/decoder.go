package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/allisson/redo/internal/redo/domain"
)

// nullTypeToken marks an argument recorded as null.
const nullTypeToken = "null"

// Arg is one positional argument rebuilt from a payload.
// A null argument has a nil Descriptor and an invalid Value.
type Arg struct {
	Descriptor *Descriptor
	Value      reflect.Value
}

// IsNull reports whether the argument was recorded as null.
func (a Arg) IsNull() bool {
	return a.Descriptor == nil
}

// Interface returns the decoded value, or nil for a null argument.
func (a Arg) Interface() any {
	if a.IsNull() || !a.Value.IsValid() {
		return nil
	}
	return a.Value.Interface()
}

// Decoder rebuilds typed values from recorded type signatures and JSON text.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	types *TypeRegistry
}

// NewDecoder creates a Decoder over the given type registry.
func NewDecoder(types *TypeRegistry) *Decoder {
	return &Decoder{types: types}
}

// Decode builds a value of the shape described by d from raw JSON text.
// Failures wrap domain.ErrDecode.
func (d *Decoder) Decode(desc Descriptor, raw []byte) (reflect.Value, error) {
	v, err := d.decode(desc, raw)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %s: %w", domain.ErrDecode, desc.Signature, err)
	}
	return v, nil
}

// DecodeArgs rebuilds the ordered argument list from a payload holding alternating
// type-name and value tokens. Blank input or JSON null yields an empty list.
// A type token that is empty, blank, null or "null" produces a null argument and
// its value token is not decoded.
func (d *Decoder) DecodeArgs(serialized string) ([]Arg, error) {
	if strings.TrimSpace(serialized) == "" {
		return []Arg{}, nil
	}

	var tokens []json.RawMessage
	if err := json.Unmarshal([]byte(serialized), &tokens); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON array: %w", domain.ErrDecode, err)
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("%w: payload has %d tokens, expected type/value pairs", domain.ErrDecode, len(tokens))
	}

	args := make([]Arg, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		position := i / 2

		typeName, isNull, err := typeToken(tokens[i])
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", domain.ErrDecode, position, err)
		}
		if isNull {
			args = append(args, Arg{})
			continue
		}

		raw, err := valueToken(tokens[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", domain.ErrDecode, position, err)
		}

		desc := ParseType(typeName)
		v, err := d.Decode(desc, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", position, err)
		}
		args = append(args, Arg{Descriptor: &desc, Value: v})
	}

	return args, nil
}

// ResolveTypes parses a JSON array of type names into Go types.
// Blank input yields no types.
func (d *Decoder) ResolveTypes(serialized string) ([]reflect.Type, error) {
	if strings.TrimSpace(serialized) == "" {
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(serialized), &names); err != nil {
		return nil, fmt.Errorf("%w: type list is not a JSON array of strings: %w", domain.ErrDecode, err)
	}

	types := make([]reflect.Type, len(names))
	for i, name := range names {
		t, err := d.types.Resolve(ParseType(name))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		types[i] = t
	}
	return types, nil
}

func (d *Decoder) decode(desc Descriptor, raw []byte) (reflect.Value, error) {
	switch desc.Shape {
	case ShapeScalar:
		return d.decodeScalar(desc.Name, raw)
	case ShapeArray:
		return d.decodeSequence(ParseType(desc.Elem()), raw, false)
	case ShapeContainer1:
		kind, ok := d.types.Container(desc.Name)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: container %q", ErrUnknownType, desc.Name)
		}
		if kind == ContainerMap {
			return reflect.Value{}, fmt.Errorf("%w: map container %q needs key and value types", ErrShapeMismatch, desc.Name)
		}
		return d.decodeSequence(ParseType(desc.Elem()), raw, kind == ContainerSet)
	case ShapeContainer2:
		return d.decodeMap(desc, raw)
	default:
		return reflect.Value{}, fmt.Errorf("%w: shape %s", ErrUnknownType, desc.Shape)
	}
}

func (d *Decoder) decodeScalar(name string, raw []byte) (reflect.Value, error) {
	if codec, ok := d.types.Codec(name); ok {
		return codec.Decode(raw)
	}

	t, err := d.types.resolveScalar(name)
	if err != nil {
		return reflect.Value{}, err
	}
	return NewJSONCodec(t).Decode(raw)
}

func (d *Decoder) decodeSequence(elemDesc Descriptor, raw []byte, unique bool) (reflect.Value, error) {
	elemType, err := d.types.Resolve(elemDesc)
	if err != nil {
		return reflect.Value{}, err
	}
	sliceType := reflect.SliceOf(elemType)

	if isJSONNull(raw) {
		return reflect.Zero(sliceType), nil
	}

	// Byte arrays travel as base64 text and char arrays as plain text.
	if elemType.Kind() == reflect.Uint8 || (elemType == reflect.TypeFor[rune]() && isJSONString(raw)) {
		ptr := reflect.New(sliceType)
		if elemType.Kind() == reflect.Uint8 {
			if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
				return reflect.Value{}, err
			}
			return ptr.Elem(), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf([]rune(s)), nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: expected a JSON array: %w", ErrShapeMismatch, err)
	}

	out := reflect.MakeSlice(sliceType, 0, len(items))
	var seen map[any]struct{}
	if unique {
		seen = make(map[any]struct{}, len(items))
	}

	for i, item := range items {
		v, err := d.decode(elemDesc, item)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		// Comparable on the value, not the type: a struct with an interface field can hold
		// a slice and still report a comparable type.
		if seen != nil && v.Comparable() {
			key := v.Interface()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = reflect.Append(out, v)
	}

	return out, nil
}

func (d *Decoder) decodeMap(desc Descriptor, raw []byte) (reflect.Value, error) {
	mapType, err := d.types.Resolve(desc)
	if err != nil {
		return reflect.Value{}, err
	}

	if isJSONNull(raw) {
		return reflect.Zero(mapType), nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: expected a JSON object: %w", ErrShapeMismatch, err)
	}

	keyDesc := ParseType(desc.Key())
	valueDesc := ParseType(desc.Value())

	out := reflect.MakeMapWithSize(mapType, len(entries))
	for text, item := range entries {
		k, err := d.decodeKey(keyDesc, mapType.Key(), text)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %q: %w", text, err)
		}
		v, err := d.decode(valueDesc, item)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("value for key %q: %w", text, err)
		}
		out.SetMapIndex(k, v)
	}

	return out, nil
}

// decodeKey converts the string form of an object key into the key type.
func (d *Decoder) decodeKey(keyDesc Descriptor, keyType reflect.Type, text string) (reflect.Value, error) {
	if keyType.Kind() == reflect.String {
		return reflect.ValueOf(text).Convert(keyType), nil
	}

	v, err := d.decode(keyDesc, []byte(text))
	if err == nil {
		return v, nil
	}

	quoted, qErr := json.Marshal(text)
	if qErr != nil {
		return reflect.Value{}, err
	}
	if v, qErr := d.decode(keyDesc, quoted); qErr == nil {
		return v, nil
	}
	return reflect.Value{}, err
}

func typeToken(raw json.RawMessage) (string, bool, error) {
	if isJSONNull(raw) {
		return "", true, nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", false, fmt.Errorf("type token %s is not a string", raw)
	}

	name = strings.TrimSpace(name)
	if name == "" || name == nullTypeToken {
		return "", true, nil
	}
	return name, false, nil
}

// valueToken returns the JSON text carried by a value token. A string token carries
// JSON text as its content; any other token is used as is.
func valueToken(raw json.RawMessage) ([]byte, error) {
	if !isJSONString(raw) {
		return raw, nil
	}

	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	return []byte(content), nil
}

func isJSONNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isJSONString(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
