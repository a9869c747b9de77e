package graphics

import (
	mgl "github.com/go-gl/mathgl/mgl32"
)

// Surface is the drawable region a canvas renders into.
type Surface interface {
	// GetFramebufferSize returns the drawing buffer size in pixels.
	GetFramebufferSize() (int, int)
	// Bounds returns the region's rectangle in the host's pointer coordinates.
	Bounds() Rect
	// Visible reports whether the region is currently on screen.
	Visible() bool
}

// Context defines the interface for an OpenGL context owned by the host loop.
type Context interface {
	Surface
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	EndFrame()
	// CursorPos returns the pointer position in the same space as Bounds.
	CursorPos() mgl.Vec2
}

// Rect is an axis-aligned rectangle with a top-left origin.
type Rect struct {
	Min mgl.Vec2
	Max mgl.Vec2
}

// NewRect builds a Rect from its left, top, right and bottom edges.
func NewRect(left, top, right, bottom float32) Rect {
	return Rect{Min: mgl.Vec2{left, top}, Max: mgl.Vec2{right, bottom}}
}

func (r Rect) Dx() float32 { return r.Max.X() - r.Min.X() }
func (r Rect) Dy() float32 { return r.Max.Y() - r.Min.Y() }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p mgl.Vec2) bool {
	return p.X() >= r.Min.X() && p.X() <= r.Max.X() &&
		p.Y() >= r.Min.Y() && p.Y() <= r.Max.Y()
}
