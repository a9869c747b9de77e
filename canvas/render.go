package canvas

import (
	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/shader"
	"github.com/richinsley/glslcanvas/uniform"
)

// Render draws a frame when force is set, when a texture changed state
// since the last draw, or when the shader is animated and the surface is
// visible. It reports whether a frame was drawn.
func (c *Canvas) Render(force bool) bool {
	if c.destroyed || c.program == 0 {
		return false
	}
	if c.textures.Poll() {
		c.forced = true
	}
	if !force && !c.forced && !(c.animated && c.surface.Visible()) {
		return false
	}

	w, h := c.surface.GetFramebufferSize()
	c.dev.UseProgram(c.program)
	c.dev.Viewport(w, h)

	elapsed := c.now().Sub(c.loadTime).Seconds()
	c.uniforms.Set(graphics.Method1f, uniform.TypeFloat, shader.UniformTime, float32(elapsed))
	c.uniforms.Set(graphics.Method2f, uniform.TypeVec2, shader.UniformResolution, float32(w), float32(h))

	c.textures.ResetUnits()
	for _, name := range c.textures.Names() {
		c.bindTexture(name)
	}

	c.dev.DrawArrays(0, quadVertices)
	c.forced = false
	return true
}

// ReadPixels returns the current framebuffer as tightly packed RGBA rows,
// bottom row first.
func (c *Canvas) ReadPixels() (pixels []byte, width, height int) {
	width, height = c.surface.GetFramebufferSize()
	return c.dev.ReadPixels(width, height), width, height
}
