// Package gldevice implements graphics.Device on OpenGL 4.1 core. The same
// entry points also drive the ES 3 context created by the headless package.
package gldevice

import (
	"fmt"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/glslcanvas/graphics"
)

// glInitOnce ensures gl.Init() is called only once per process.
var glInitOnce sync.Once

// Device issues OpenGL calls on the context current on the calling thread.
type Device struct {
	vao uint32
}

var _ graphics.Device = (*Device)(nil)

// New loads the OpenGL function pointers and creates the vertex array object
// the canvas attributes are recorded in. The context must already be current.
func New() (*Device, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}

	d := &Device{}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	return d, nil
}

// Release deletes the device's vertex array object.
func (d *Device) Release() {
	gl.BindVertexArray(0)
	gl.DeleteVertexArrays(1, &d.vao)
}

// Version returns the GL_VERSION string of the current context.
func Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (d *Device) CompileShader(stage graphics.Stage, source string) (uint32, error) {
	var shaderType uint32
	switch stage {
	case graphics.StageVertex:
		shaderType = gl.VERTEX_SHADER
	case graphics.StageFragment:
		shaderType = gl.FRAGMENT_SHADER
	default:
		return 0, fmt.Errorf("invalid pipeline stage: %v", stage)
	}

	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile %v shader: %v", stage, strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

func (d *Device) LinkProgram(vertex, fragment uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}

	gl.DetachShader(program, vertex)
	gl.DetachShader(program, fragment)
	return program, nil
}

func (d *Device) UseProgram(program uint32)    { gl.UseProgram(program) }
func (d *Device) DeleteShader(shader uint32)   { gl.DeleteShader(shader) }
func (d *Device) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (d *Device) GetUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) GetAttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) Uniform(method graphics.Method, location int32, v []float32) {
	if location < 0 || len(v) < method.Components() {
		return
	}
	switch method {
	case graphics.Method1f:
		gl.Uniform1f(location, v[0])
	case graphics.Method2f:
		gl.Uniform2f(location, v[0], v[1])
	case graphics.Method3f:
		gl.Uniform3f(location, v[0], v[1], v[2])
	case graphics.Method4f:
		gl.Uniform4f(location, v[0], v[1], v[2], v[3])
	case graphics.Method1i:
		gl.Uniform1i(location, int32(v[0]))
	case graphics.Method2i:
		gl.Uniform2i(location, int32(v[0]), int32(v[1]))
	case graphics.Method3i:
		gl.Uniform3i(location, int32(v[0]), int32(v[1]), int32(v[2]))
	case graphics.Method4i:
		gl.Uniform4i(location, int32(v[0]), int32(v[1]), int32(v[2]), int32(v[3]))
	}
}

func (d *Device) CreateBuffer(data []float32) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vbo
}

func (d *Device) BindAttribute(buffer uint32, location int32, size int32) {
	if location < 0 {
		return
	}
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointer(uint32(location), size, gl.FLOAT, false, size*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *Device) DeleteBuffer(buffer uint32) {
	gl.DeleteBuffers(1, &buffer)
}

func (d *Device) CreateTexture() uint32 {
	var textureID uint32
	gl.GenTextures(1, &textureID)
	return textureID
}

func (d *Device) UploadTexture(texture uint32, sampler graphics.Sampler, width, height int, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, texture)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, getWrapMode(sampler.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, getWrapMode(sampler.Wrap))
	minFilter, magFilter := getFilterMode(sampler.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)

	// Rows are tightly packed regardless of width.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(width),
		int32(height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(pixels),
	)

	if sampler.Filter == "mipmap" {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture(texture uint32) {
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (d *Device) DeleteTexture(texture uint32) {
	gl.DeleteTextures(1, &texture)
}

func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *Device) DrawArrays(first, count int32) {
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLES, first, count)
}

func (d *Device) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// getWrapMode converts a Shadertoy-style wrap name to its OpenGL constant.
func getWrapMode(wrap string) int32 {
	switch wrap {
	case "repeat":
		return gl.REPEAT
	case "clamp":
		return gl.CLAMP_TO_EDGE
	default:
		return gl.CLAMP_TO_EDGE
	}
}

// getFilterMode converts a Shadertoy-style filter name to min/mag constants.
func getFilterMode(filter string) (minFilter, magFilter int32) {
	switch filter {
	case "mipmap":
		return gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR
	case "linear":
		return gl.LINEAR, gl.LINEAR
	case "nearest":
		return gl.NEAREST, gl.NEAREST
	default:
		return gl.LINEAR, gl.LINEAR
	}
}
