package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		shape     Shape
		outer     string
		params    []string
	}{
		{name: "plain scalar", signature: "java.lang.String", shape: ShapeScalar, outer: "java.lang.String"},
		{name: "surrounding whitespace", signature: "  int64 ", shape: ShapeScalar, outer: "int64"},
		{name: "object array", signature: "[Ljava.lang.String;", shape: ShapeArray, params: []string{"java.lang.String"}},
		{name: "primitive array", signature: "[J", shape: ShapeArray, params: []string{"int64"}},
		{name: "nested primitive array", signature: "[[I", shape: ShapeArray, params: []string{"[I"}},
		{name: "go slice", signature: "[]string", shape: ShapeArray, params: []string{"string"}},
		{
			name:      "single parameter container",
			signature: "java.util.List<java.lang.Long>",
			shape:     ShapeContainer1,
			outer:     "java.util.List",
			params:    []string{"java.lang.Long"},
		},
		{
			name:      "two parameter container",
			signature: "java.util.Map<java.lang.String, java.lang.Integer>",
			shape:     ShapeContainer2,
			outer:     "java.util.Map",
			params:    []string{"java.lang.String", "java.lang.Integer"},
		},
		{
			name:      "nested generic value",
			signature: "map<string,list<map<string,int>>>",
			shape:     ShapeContainer2,
			outer:     "map",
			params:    []string{"string", "list<map<string,int>>"},
		},
		{
			name:      "nested generic element keeps inner comma",
			signature: "list<map<string,int>>",
			shape:     ShapeContainer1,
			outer:     "list",
			params:    []string{"map<string,int>"},
		},
		{name: "unbalanced generic", signature: "list<string", shape: ShapeScalar, outer: "list<string"},
		{name: "empty parameters", signature: "list<>", shape: ShapeScalar, outer: "list<>"},
		{name: "unknown primitive code", signature: "[Q", shape: ShapeScalar, outer: "[Q"},
		{name: "empty object array", signature: "[L;", shape: ShapeScalar, outer: "[L;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseType(tt.signature)
			assert.Equal(t, tt.shape, d.Shape)
			assert.Equal(t, tt.outer, d.Name)
			if tt.params == nil {
				assert.Empty(t, d.Params)
			} else {
				assert.Equal(t, tt.params, d.Params)
			}
		})
	}
}

func TestDescriptor_Accessors(t *testing.T) {
	t.Run("array element", func(t *testing.T) {
		d := ParseType("[Ljava.lang.String;")
		assert.Equal(t, "java.lang.String", d.Elem())
		assert.Empty(t, d.Key())
		assert.Equal(t, "[Ljava.lang.String;", d.String())
	})

	t.Run("map key and value", func(t *testing.T) {
		d := ParseType("map<string,int>")
		assert.Equal(t, "string", d.Key())
		assert.Equal(t, "int", d.Value())
		assert.Empty(t, d.Elem())
	})

	t.Run("shape names", func(t *testing.T) {
		assert.Equal(t, "scalar", ShapeScalar.String())
		assert.Equal(t, "container2", ShapeContainer2.String())
		assert.Equal(t, "unknown", Shape(42).String())
	})
}
