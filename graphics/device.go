package graphics

import "fmt"

// Stage identifies a shader pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Method is the glUniform call variant used to write a uniform.
type Method string

const (
	Method1f Method = "1f"
	Method2f Method = "2f"
	Method3f Method = "3f"
	Method4f Method = "4f"
	Method1i Method = "1i"
	Method2i Method = "2i"
	Method3i Method = "3i"
	Method4i Method = "4i"
)

// Components returns how many values the method consumes, or 0 if unknown.
func (m Method) Components() int {
	switch m {
	case Method1f, Method1i:
		return 1
	case Method2f, Method2i:
		return 2
	case Method3f, Method3i:
		return 3
	case Method4f, Method4i:
		return 4
	}
	return 0
}

// Sampler holds texture sampling parameters using Shadertoy-style names:
// Wrap is "repeat" or "clamp", Filter is "nearest", "linear" or "mipmap".
type Sampler struct {
	Wrap   string
	Filter string
}

// DefaultSampler is applied when a canvas is not given one.
var DefaultSampler = Sampler{Wrap: "clamp", Filter: "linear"}

// Device is the set of GPU calls the canvas issues. Implementations are
// bound to one graphics context and must be called from its thread.
type Device interface {
	CompileShader(stage Stage, source string) (uint32, error)
	LinkProgram(vertex, fragment uint32) (uint32, error)
	UseProgram(program uint32)
	DeleteShader(shader uint32)
	DeleteProgram(program uint32)

	GetUniformLocation(program uint32, name string) int32
	GetAttribLocation(program uint32, name string) int32
	// Uniform issues glUniform<method> at location with values converted
	// to the method's component type.
	Uniform(method Method, location int32, values []float32)

	// CreateBuffer uploads static float data into a new array buffer.
	CreateBuffer(data []float32) uint32
	// BindAttribute points the attribute at location to buffer, size floats per vertex.
	BindAttribute(buffer uint32, location int32, size int32)
	DeleteBuffer(buffer uint32)

	CreateTexture() uint32
	// UploadTexture replaces the texture's image with tightly packed RGBA8 pixels.
	UploadTexture(texture uint32, sampler Sampler, width, height int, pixels []byte)
	ActiveTexture(unit int)
	BindTexture(texture uint32)
	DeleteTexture(texture uint32)

	Viewport(width, height int)
	DrawArrays(first, count int32)
	// ReadPixels returns the bound framebuffer as bottom-up RGBA8 rows.
	ReadPixels(width, height int) []byte
}
