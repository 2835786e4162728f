// Package service implements the replay core: parsing recorded type signatures, rebuilding
// typed argument values from their JSON form, resolving the live target component and
// invoking the recorded method on it.
package service

import (
	"strings"
)

// Shape is the structural variant of a parsed type signature.
type Shape int

const (
	// ShapeScalar is an ordinary named type.
	ShapeScalar Shape = iota
	// ShapeArray is an array of one element type.
	ShapeArray
	// ShapeContainer1 is a single-parameter generic container such as a list or set.
	ShapeContainer1
	// ShapeContainer2 is a two-parameter generic container such as a map.
	ShapeContainer2
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeArray:
		return "array"
	case ShapeContainer1:
		return "container1"
	case ShapeContainer2:
		return "container2"
	default:
		return "unknown"
	}
}

// primitiveArrayCodes maps one-letter array element codes to registered scalar names.
var primitiveArrayCodes = map[byte]string{
	'Z': "bool",
	'B': "byte",
	'C': "char",
	'S': "int16",
	'I': "int32",
	'J': "int64",
	'F': "float32",
	'D': "float64",
}

// Descriptor is the parsed shape of one argument type.
//
//   - Scalar:     Name is the type name, Params is empty.
//   - Array:      Name is empty, Params holds the element signature.
//   - Container1: Name is the container, Params holds the element signature.
//   - Container2: Name is the container, Params holds the key and value signatures.
type Descriptor struct {
	Shape     Shape
	Name      string
	Params    []string
	Signature string
}

// Scalar returns a scalar descriptor.
func Scalar(name string) Descriptor {
	return Descriptor{Shape: ShapeScalar, Name: name, Signature: name}
}

// Elem returns the element signature of an array or single-parameter container.
func (d Descriptor) Elem() string {
	if d.Shape == ShapeArray || d.Shape == ShapeContainer1 {
		return d.Params[0]
	}
	return ""
}

// Key returns the key signature of a two-parameter container.
func (d Descriptor) Key() string {
	if d.Shape == ShapeContainer2 {
		return d.Params[0]
	}
	return ""
}

// Value returns the value signature of a two-parameter container.
func (d Descriptor) Value() string {
	if d.Shape == ShapeContainer2 {
		return d.Params[1]
	}
	return ""
}

// String returns the original signature.
func (d Descriptor) String() string {
	return d.Signature
}

// ParseType parses a textual type signature.
//
// Array notation is tried first: "[L<name>;", a primitive code such as "[J", nested
// arrays such as "[[I", and the Go form "[]<name>". Then generic notation: the outer
// name is the text before the first '<' and the parameters are the text inside the
// outermost "<...>" pair. A comma at nesting depth zero selects the two-parameter
// form, split at that comma; otherwise the single-parameter form applies. Anything
// else, malformed notation included, is a scalar named by the whole signature.
func ParseType(signature string) Descriptor {
	s := strings.TrimSpace(signature)

	if strings.HasPrefix(s, "[") {
		if d, ok := parseArray(s); ok {
			return d
		}
	}

	if d, ok := parseGeneric(s); ok {
		return d
	}

	return Scalar(s)
}

func parseArray(s string) (Descriptor, bool) {
	var elem string
	rest := s[1:]

	switch {
	case strings.HasPrefix(rest, "]") && len(rest) > 1:
		elem = strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, "["):
		if _, ok := parseArray(rest); !ok {
			return Descriptor{}, false
		}
		elem = rest
	case strings.HasPrefix(rest, "L") && strings.HasSuffix(rest, ";") && len(rest) > 2:
		elem = rest[1 : len(rest)-1]
	case len(rest) == 1:
		name, ok := primitiveArrayCodes[rest[0]]
		if !ok {
			return Descriptor{}, false
		}
		elem = name
	default:
		return Descriptor{}, false
	}

	if elem == "" {
		return Descriptor{}, false
	}

	return Descriptor{Shape: ShapeArray, Params: []string{elem}, Signature: s}, true
}

func parseGeneric(s string) (Descriptor, bool) {
	open := strings.IndexByte(s, '<')
	if open <= 0 || !strings.HasSuffix(s, ">") {
		return Descriptor{}, false
	}

	outer := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	if outer == "" || strings.TrimSpace(inner) == "" {
		return Descriptor{}, false
	}

	depth := 0
	split := -1
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return Descriptor{}, false
			}
		case ',':
			if depth == 0 && split < 0 {
				split = i
			}
		}
	}
	if depth != 0 {
		return Descriptor{}, false
	}

	if split < 0 {
		return Descriptor{
			Shape:     ShapeContainer1,
			Name:      outer,
			Params:    []string{strings.TrimSpace(inner)},
			Signature: s,
		}, true
	}

	key := strings.TrimSpace(inner[:split])
	value := strings.TrimSpace(inner[split+1:])
	if key == "" || value == "" {
		return Descriptor{}, false
	}

	return Descriptor{
		Shape:     ShapeContainer2,
		Name:      outer,
		Params:    []string{key, value},
		Signature: s,
	}, true
}
