package uniform

import (
	"errors"
	"testing"

	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/glslcanvas/graphics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOneClassifies(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		typ    Type
		method graphics.Method
		want   []float32
		url    string
	}{
		{"float64", 0.5, TypeFloat, graphics.Method1f, []float32{0.5}, ""},
		{"int", 3, TypeFloat, graphics.Method1f, []float32{3}, ""},
		{"int64 from toml", int64(7), TypeFloat, graphics.Method1f, []float32{7}, ""},
		{"single element list", []float64{2}, TypeFloat, graphics.Method1f, []float32{2}, ""},
		{"vec2", []float32{1, 2}, TypeVec2, graphics.Method2f, []float32{1, 2}, ""},
		{"vec3 of any", []any{1, 2.5, int64(3)}, TypeVec3, graphics.Method3f, []float32{1, 2.5, 3}, ""},
		{"vec4 array", [4]float64{1, 0, 0, 1}, TypeVec4, graphics.Method4f, []float32{1, 0, 0, 1}, ""},
		{"mathgl vec2", mgl.Vec2{3, 4}, TypeVec2, graphics.Method2f, []float32{3, 4}, ""},
		{"bool", true, TypeBool, graphics.Method1i, []float32{1}, ""},
		{"bool in list", []any{false}, TypeBool, graphics.Method1i, []float32{0}, ""},
		{"texture url", "images/noise.png", TypeSampler2D, graphics.Method1i, nil, "images/noise.png"},
		{"texture url in list", []string{"a.png"}, TypeSampler2D, graphics.Method1i, nil, "a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseOne("u_x", tt.value)
			require.NoError(t, err)
			assert.Equal(t, "u_x", d.Name)
			assert.Equal(t, tt.typ, d.Type)
			assert.Equal(t, tt.method, d.Method)
			assert.Equal(t, tt.want, d.Value)
			assert.Equal(t, tt.url, d.URL)
		})
	}
}

func TestParseOneRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"empty list", []float32{}},
		{"too many components", []float64{1, 2, 3, 4, 5}},
		{"mixed kinds", []any{1.0, "x"}},
		{"struct", struct{ X int }{1}},
		{"map", map[string]int{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOne("u_bad", tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidUniformShape))

			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, "u_bad", shapeErr.Name)
		})
	}
}

func TestParseSkipsInvalidAndKeepsOrder(t *testing.T) {
	descs, err := Parse(map[string]any{
		"u_zeta":  1.0,
		"u_alpha": []float64{1, 2},
		"u_bad":   []float64{},
		"u_tex0":  "noise.png",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUniformShape)
	assert.Contains(t, err.Error(), "u_bad")

	require.Len(t, descs, 3)
	assert.Equal(t, "u_alpha", descs[0].Name)
	assert.Equal(t, "u_tex0", descs[1].Name)
	assert.Equal(t, "u_zeta", descs[2].Name)
}

func TestParseEmptyMap(t *testing.T) {
	descs, err := Parse(nil)
	assert.NoError(t, err)
	assert.Empty(t, descs)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "sampler2D", TypeSampler2D.String())
	assert.Equal(t, "vec3", TypeVec3.String())
}
