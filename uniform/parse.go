// Package uniform classifies host-supplied uniform values and applies them
// to the current program, skipping writes whose value has not changed.
package uniform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/richinsley/glslcanvas/graphics"
)

// Type is the GLSL type a uniform value was classified as.
type Type int

const (
	TypeFloat Type = iota
	TypeVec2
	TypeVec3
	TypeVec4
	TypeBool
	TypeSampler2D
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	case TypeBool:
		return "bool"
	case TypeSampler2D:
		return "sampler2D"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ErrInvalidUniformShape is matched by every ShapeError.
var ErrInvalidUniformShape = errors.New("invalid uniform shape")

// ShapeError reports a value that cannot be mapped onto a uniform type.
type ShapeError struct {
	Name   string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("uniform %q: %s: %s", e.Name, ErrInvalidUniformShape, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidUniformShape }

// Descriptor is a classified uniform ready to be applied.
type Descriptor struct {
	Name   string
	Type   Type
	Method graphics.Method
	Value  []float32
	// URL is the texture source for sampler2D uniforms.
	URL string
}

// Parse classifies every entry of values. Entries that cannot be classified
// are left out of the result and reported together in the returned error;
// the remaining descriptors are still returned, sorted by name.
func Parse(values map[string]any) ([]Descriptor, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		d, err := ParseOne(name, values[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, d)
	}
	return out, errors.Join(errs...)
}

// ParseOne classifies a single value. Accepted forms are a number, a bool,
// a string (texture URL), or a list/array of one to four numbers.
func ParseOne(name string, value any) (Descriptor, error) {
	d := Descriptor{Name: name}
	if name == "" {
		return d, &ShapeError{Name: name, Reason: "empty name"}
	}

	switch v := value.(type) {
	case nil:
		return d, &ShapeError{Name: name, Reason: "nil value"}
	case string:
		return sampler(d, v), nil
	case bool:
		return boolean(d, v), nil
	}
	if f, ok := toFloat(value); ok {
		d.Type, d.Method, d.Value = TypeFloat, graphics.Method1f, []float32{f}
		return d, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return d, &ShapeError{Name: name, Reason: fmt.Sprintf("unsupported value of type %T", value)}
	}

	n := rv.Len()
	if n == 0 {
		return d, &ShapeError{Name: name, Reason: "empty value list"}
	}
	if n == 1 {
		switch v := rv.Index(0).Interface().(type) {
		case string:
			return sampler(d, v), nil
		case bool:
			return boolean(d, v), nil
		}
	}
	if n > 4 {
		return d, &ShapeError{Name: name, Reason: fmt.Sprintf("%d components, at most 4 supported", n)}
	}

	d.Value = make([]float32, n)
	for i := 0; i < n; i++ {
		f, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return Descriptor{Name: name}, &ShapeError{
				Name:   name,
				Reason: fmt.Sprintf("component %d has type %T, want a number", i, rv.Index(i).Interface()),
			}
		}
		d.Value[i] = f
	}
	d.Type, d.Method = vecType(n)
	return d, nil
}

func sampler(d Descriptor, url string) Descriptor {
	d.Type, d.Method, d.URL = TypeSampler2D, graphics.Method1i, url
	return d
}

func boolean(d Descriptor, b bool) Descriptor {
	d.Type, d.Method, d.Value = TypeBool, graphics.Method1i, []float32{0}
	if b {
		d.Value[0] = 1
	}
	return d
}

func vecType(n int) (Type, graphics.Method) {
	switch n {
	case 2:
		return TypeVec2, graphics.Method2f
	case 3:
		return TypeVec3, graphics.Method3f
	case 4:
		return TypeVec4, graphics.Method4f
	}
	return TypeFloat, graphics.Method1f
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	case int8:
		return float32(n), true
	case int16:
		return float32(n), true
	case int32:
		return float32(n), true
	case int64:
		return float32(n), true
	case uint:
		return float32(n), true
	case uint8:
		return float32(n), true
	case uint16:
		return float32(n), true
	case uint32:
		return float32(n), true
	case uint64:
		return float32(n), true
	}
	return 0, false
}
