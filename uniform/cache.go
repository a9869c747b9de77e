package uniform

import (
	"math"
	"sort"

	"github.com/richinsley/glslcanvas/graphics"
)

// State is the last value written for one uniform name.
type State struct {
	Name   string
	Type   Type
	Method graphics.Method
	Value  []float32

	location int32
	resolved bool
	written  bool
}

// Location returns the cached GPU location and whether it has been resolved
// for the current program.
func (s *State) Location() (int32, bool) { return s.location, s.resolved }

// Cache tracks uniform values per name and only issues a GPU write when a
// value changes. Locations are resolved once per program.
type Cache struct {
	dev     graphics.Device
	program uint32
	resolve func(string) string
	states  map[string]*State
}

func NewCache(dev graphics.Device) *Cache {
	return &Cache{
		dev:     dev,
		resolve: func(name string) string { return name },
		states:  make(map[string]*State),
	}
}

// Reset points the cache at a new program. Every cached location is dropped
// and every entry is marked unwritten; values are kept for Replay. resolve
// maps a uniform name to its name in the compiled program and may be nil.
func (c *Cache) Reset(program uint32, resolve func(string) string) {
	c.program = program
	if resolve == nil {
		resolve = func(name string) string { return name }
	}
	c.resolve = resolve
	for _, st := range c.states {
		st.location = -1
		st.resolved = false
		st.written = false
	}
}

// Set records values for name and writes them with method when the uniform
// has not been written to the current program or its value changed.
// It reports whether the value was applied.
func (c *Cache) Set(method graphics.Method, typ Type, name string, values ...float32) bool {
	st, ok := c.states[name]
	if !ok {
		st = &State{Name: name, location: -1}
		c.states[name] = st
	}
	if st.written && st.Method == method && equal(st.Value, values) {
		return false
	}

	st.Type = typ
	st.Method = method
	st.Value = append(st.Value[:0], values...)
	return c.write(st)
}

// Replay writes every remembered value that has not yet reached the current
// program, in name order, and returns how many were applied.
func (c *Cache) Replay() int {
	names := make([]string, 0, len(c.states))
	for name, st := range c.states {
		if !st.written && st.Value != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c.write(c.states[name])
	}
	return len(names)
}

// Get returns a copy of the state stored for name.
func (c *Cache) Get(name string) (State, bool) {
	st, ok := c.states[name]
	if !ok {
		return State{}, false
	}
	cp := *st
	cp.Value = append([]float32(nil), st.Value...)
	return cp, true
}

// Len returns the number of tracked uniforms.
func (c *Cache) Len() int { return len(c.states) }

func (c *Cache) write(st *State) bool {
	if c.program == 0 {
		return false
	}
	if !st.resolved {
		st.location = c.dev.GetUniformLocation(c.program, c.resolve(st.Name))
		st.resolved = true
	}
	// An inactive uniform has no location; the value is still remembered.
	if st.location >= 0 {
		c.dev.Uniform(st.Method, st.location, st.Value)
	}
	st.written = true
	return true
}

// equal compares bit patterns, so a NaN matches the same NaN.
func equal(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}
