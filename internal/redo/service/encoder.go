package service

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// TypedValue is one argument of a call being recorded for replay.
// An empty Type or a nil Value records a null argument.
type TypedValue struct {
	Type  string
	Value any
}

// Encoder renders call arguments in the payload format understood by Decoder.
type Encoder struct {
	types *TypeRegistry
}

// NewEncoder creates an Encoder over the given type registry.
func NewEncoder(types *TypeRegistry) *Encoder {
	return &Encoder{types: types}
}

// EncodeArgs returns the JSON array interleaving each argument's type name with
// the JSON text of its value.
func (e *Encoder) EncodeArgs(args ...TypedValue) (string, error) {
	tokens := make([]any, 0, len(args)*2)
	for i, arg := range args {
		name := strings.TrimSpace(arg.Type)
		if name == "" || name == nullTypeToken || isNilValue(arg.Value) {
			tokens = append(tokens, nullTypeToken, nil)
			continue
		}

		raw, err := e.encodeValue(ParseType(name), arg.Value)
		if err != nil {
			return "", fmt.Errorf("argument %d (%s): %w", i, name, err)
		}
		tokens = append(tokens, name, string(raw))
	}

	out, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeArgTypes returns the JSON array of declared parameter type names.
func (e *Encoder) EncodeArgTypes(names ...string) (string, error) {
	if names == nil {
		names = []string{}
	}
	out, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (e *Encoder) encodeValue(desc Descriptor, value any) ([]byte, error) {
	// Already serialized values are stored as given.
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid JSON value", ErrShapeMismatch)
		}
		return raw, nil
	}
	if desc.Shape == ShapeScalar {
		codec, ok := e.types.Codec(desc.Name)
		if ok && value != nil {
			return codec.Encode(reflect.ValueOf(value))
		}
	}
	return json.Marshal(value)
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
