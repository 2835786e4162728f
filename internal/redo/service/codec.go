package service

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// Codec converts between the JSON text of a value and its Go representation.
type Codec interface {
	// Type returns the Go type produced by Decode.
	Type() reflect.Type
	// Decode builds a value of Type from its JSON text.
	Decode(raw []byte) (reflect.Value, error)
	// Encode renders a value of Type as JSON text.
	Encode(v reflect.Value) ([]byte, error)
}

// jsonCodec decodes with encoding/json and falls back to encoding.TextUnmarshaler.
// String kinds also accept the raw text when it is not valid JSON.
type jsonCodec struct {
	t reflect.Type
}

// NewJSONCodec returns a Codec backed by encoding/json for the given type.
func NewJSONCodec(t reflect.Type) Codec {
	return jsonCodec{t: t}
}

func (c jsonCodec) Type() reflect.Type {
	return c.t
}

func (c jsonCodec) Decode(raw []byte) (reflect.Value, error) {
	ptr := reflect.New(c.t)

	err := json.Unmarshal(raw, ptr.Interface())
	if err == nil {
		return ptr.Elem(), nil
	}

	if c.t.Kind() == reflect.String && utf8.Valid(raw) {
		ptr.Elem().SetString(string(raw))
		return ptr.Elem(), nil
	}

	if unmarshaler, ok := ptr.Interface().(encoding.TextUnmarshaler); ok && utf8.Valid(raw) {
		if textErr := unmarshaler.UnmarshalText(raw); textErr == nil {
			return ptr.Elem(), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("'%s' for type '%s': %w", raw, c.t, err)
}

func (c jsonCodec) Encode(v reflect.Value) ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// charCodec stores a single character as a rune. Its JSON form is a one-character string.
type charCodec struct{}

func (charCodec) Type() reflect.Type {
	return reflect.TypeFor[rune]()
}

func (charCodec) Decode(raw []byte) (reflect.Value, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	if utf8.RuneCountInString(s) != 1 {
		return reflect.Value{}, fmt.Errorf("'%s' is not a single character", raw)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return reflect.ValueOf(r), nil
}

func (charCodec) Encode(v reflect.Value) ([]byte, error) {
	switch v.Kind() {
	case reflect.String:
		return json.Marshal(v.String())
	case reflect.Int32:
		return json.Marshal(string(rune(v.Int())))
	default:
		return nil, fmt.Errorf("cannot encode %s as a character", v.Type())
	}
}
