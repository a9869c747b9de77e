// Package gltest provides a recording graphics.Device for tests.
package gltest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/richinsley/glslcanvas/graphics"
)

// FailMarker makes CompileShader reject any source containing it.
const FailMarker = "#error"

// UniformWrite records one Uniform call.
type UniformWrite struct {
	Method   graphics.Method
	Location int32
	Name     string
	Program  uint32
	Values   []float32
}

// Draw records one DrawArrays call.
type Draw struct {
	Program uint32
	First   int32
	Count   int32
}

// Texture records the last upload of a texture.
type Texture struct {
	Width, Height int
	Pixels        []byte
	Sampler       graphics.Sampler
	Uploads       int
	Deleted       bool
}

// Device is an in-memory graphics.Device. Handles are allocated from a
// single counter so every object gets a distinct id.
type Device struct {
	next uint32

	// FailLink makes LinkProgram fail when it returns true.
	FailLink func(vertex, fragment string) bool

	Shaders  map[uint32]string
	Stages   map[uint32]graphics.Stage
	Programs map[uint32][2]string
	Deleted  map[uint32]bool
	Current  uint32

	// Locations maps "program/name" to its resolved uniform location.
	Locations       map[string]int32
	LocationLookups []string
	// Missing names resolve to -1.
	Missing map[string]bool

	Uniforms   []UniformWrite
	Draws      []Draw
	Buffers    map[uint32][]float32
	Attributes map[int32]uint32
	Textures   map[uint32]*Texture
	Bound      map[int]uint32
	ActiveUnit int
	ViewportW  int
	ViewportH  int
}

var _ graphics.Device = (*Device)(nil)

func New() *Device {
	return &Device{
		Shaders:    map[uint32]string{},
		Stages:     map[uint32]graphics.Stage{},
		Programs:   map[uint32][2]string{},
		Deleted:    map[uint32]bool{},
		Locations:  map[string]int32{},
		Missing:    map[string]bool{},
		Buffers:    map[uint32][]float32{},
		Attributes: map[int32]uint32{},
		Textures:   map[uint32]*Texture{},
		Bound:      map[int]uint32{},
	}
}

func (d *Device) alloc() uint32 {
	d.next++
	return d.next
}

func (d *Device) CompileShader(stage graphics.Stage, source string) (uint32, error) {
	if strings.Contains(source, FailMarker) {
		return 0, errors.New("0:1: compile error")
	}
	id := d.alloc()
	d.Shaders[id] = source
	d.Stages[id] = stage
	return id, nil
}

func (d *Device) LinkProgram(vertex, fragment uint32) (uint32, error) {
	vs, fs := d.Shaders[vertex], d.Shaders[fragment]
	if d.FailLink != nil && d.FailLink(vs, fs) {
		return 0, errors.New("link error")
	}
	id := d.alloc()
	d.Programs[id] = [2]string{vs, fs}
	return id, nil
}

func (d *Device) UseProgram(program uint32)    { d.Current = program }
func (d *Device) DeleteShader(shader uint32)   { d.Deleted[shader] = true }
func (d *Device) DeleteProgram(program uint32) { d.Deleted[program] = true }

func (d *Device) GetUniformLocation(program uint32, name string) int32 {
	d.LocationLookups = append(d.LocationLookups, name)
	if d.Missing[name] {
		return -1
	}
	key := locationKey(program, name)
	if loc, ok := d.Locations[key]; ok {
		return loc
	}
	loc := int32(len(d.Locations))
	d.Locations[key] = loc
	return loc
}

func (d *Device) GetAttribLocation(program uint32, name string) int32 {
	switch name {
	case "a_position":
		return 0
	case "a_texcoord":
		return 1
	}
	return -1
}

func (d *Device) Uniform(method graphics.Method, location int32, values []float32) {
	name := ""
	for key, loc := range d.Locations {
		if loc == location {
			name = key[strings.Index(key, "/")+1:]
			break
		}
	}
	d.Uniforms = append(d.Uniforms, UniformWrite{
		Method:   method,
		Location: location,
		Name:     name,
		Program:  d.Current,
		Values:   append([]float32(nil), values...),
	})
}

func (d *Device) CreateBuffer(data []float32) uint32 {
	id := d.alloc()
	d.Buffers[id] = append([]float32(nil), data...)
	return id
}

func (d *Device) BindAttribute(buffer uint32, location int32, size int32) {
	d.Attributes[location] = buffer
}

func (d *Device) DeleteBuffer(buffer uint32) { d.Deleted[buffer] = true }

func (d *Device) CreateTexture() uint32 {
	id := d.alloc()
	d.Textures[id] = &Texture{}
	return id
}

func (d *Device) UploadTexture(texture uint32, sampler graphics.Sampler, width, height int, pixels []byte) {
	t := d.Textures[texture]
	t.Width, t.Height = width, height
	t.Pixels = append([]byte(nil), pixels...)
	t.Sampler = sampler
	t.Uploads++
}

func (d *Device) ActiveTexture(unit int)  { d.ActiveUnit = unit }
func (d *Device) BindTexture(tex uint32)  { d.Bound[d.ActiveUnit] = tex }
func (d *Device) DeleteTexture(tex uint32) {
	if t, ok := d.Textures[tex]; ok {
		t.Deleted = true
	}
}

func (d *Device) Viewport(width, height int) { d.ViewportW, d.ViewportH = width, height }

func (d *Device) DrawArrays(first, count int32) {
	d.Draws = append(d.Draws, Draw{Program: d.Current, First: first, Count: count})
}

func (d *Device) ReadPixels(width, height int) []byte {
	return make([]byte, width*height*4)
}

// WritesTo returns the recorded writes for a uniform name.
func (d *Device) WritesTo(name string) []UniformWrite {
	var out []UniformWrite
	for _, w := range d.Uniforms {
		if w.Name == name {
			out = append(out, w)
		}
	}
	return out
}

// LiveTextures counts textures that have not been deleted.
func (d *Device) LiveTextures() int {
	n := 0
	for _, t := range d.Textures {
		if !t.Deleted {
			n++
		}
	}
	return n
}

func locationKey(program uint32, name string) string {
	return strconv.FormatUint(uint64(program), 10) + "/" + name
}
