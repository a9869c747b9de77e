package canvas

import (
	"errors"
	"fmt"
	"log"

	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/shader"
	"github.com/richinsley/glslcanvas/uniform"
)

// SetUniform sets one uniform from host values. A single string names a
// texture URL for a sampler2D; one to four numbers set a float or vector;
// a single bool sets an int. A single slice argument is unpacked.
func (c *Canvas) SetUniform(name string, values ...any) error {
	var value any = values
	if len(values) == 1 {
		value = values[0]
	}
	return c.SetUniforms(map[string]any{name: value})
}

// SetUniforms applies every well formed entry of values. Entries that are
// not a recognised shape are skipped and reported in the returned error.
func (c *Canvas) SetUniforms(values map[string]any) error {
	if c.destroyed {
		return ErrDestroyed
	}
	descriptors, err := uniform.Parse(values)
	for _, d := range descriptors {
		if d.Type == uniform.TypeSampler2D {
			if terr := c.setTextureUniform(d.Name, d.URL); terr != nil {
				err = errors.Join(err, terr)
			}
			continue
		}
		c.uniforms.Set(d.Method, d.Type, d.Name, d.Value...)
	}
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	return err
}

// SetUniformValues writes raw values with an explicit method. It reports
// whether a GPU write happened.
func (c *Canvas) SetUniformValues(method graphics.Method, typ uniform.Type, name string, values ...float32) bool {
	if c.destroyed {
		return false
	}
	if n := method.Components(); n != len(values) {
		log.Printf("Warning: uniform %s: %s expects %d values, got %d", name, method, n, len(values))
		return false
	}
	return c.uniforms.Set(method, typ, name, values...)
}

// LoadTexture registers a texture for the sampler uniform name and starts
// loading url. A name that is already registered keeps its texture; it is
// rebound by the next render pass.
func (c *Canvas) LoadTexture(name, url string) error {
	if c.destroyed {
		return ErrDestroyed
	}
	if name == "" {
		return fmt.Errorf("texture for %q needs a uniform name", url)
	}
	return c.setTextureUniform(name, url)
}

// LoadTextures registers urls as u_tex0, u_tex1 and so on.
func (c *Canvas) LoadTextures(urls []string) error {
	for i, url := range urls {
		if err := c.LoadTexture(fmt.Sprintf("u_tex%d", i), url); err != nil {
			return err
		}
	}
	return nil
}

// setTextureUniform starts loading a new texture. Registered textures are
// left alone: units are only assigned inside a render pass, where the
// cursor starts over at zero.
func (c *Canvas) setTextureUniform(name, url string) error {
	if c.textures.Has(name) {
		return nil
	}
	if _, err := c.textures.Load(name, url); err != nil {
		return fmt.Errorf("texture %s: %w", name, err)
	}
	return nil
}

// bindTexture binds a registered texture to the next texture unit and
// publishes its unit and size.
func (c *Canvas) bindTexture(name string) {
	unit, w, h, ok := c.textures.Bind(name)
	if !ok {
		return
	}
	c.uniforms.Set(graphics.Method1i, uniform.TypeSampler2D, name, float32(unit))
	c.uniforms.Set(graphics.Method2f, uniform.TypeVec2, name+shader.ResolutionSuffix, float32(w), float32(h))
}

// SetMouse publishes a pointer position given in surface coordinates with
// the origin at the top left. The uniform is in framebuffer pixels with the
// origin at the bottom left. Positions outside the surface are ignored.
func (c *Canvas) SetMouse(pos mgl.Vec2) bool {
	if c.destroyed {
		return false
	}
	bounds := c.surface.Bounds()
	if !bounds.Contains(pos) {
		return false
	}
	fbW, fbH := c.surface.GetFramebufferSize()
	sx, sy := float32(1), float32(1)
	if bounds.Dx() > 0 {
		sx = float32(fbW) / bounds.Dx()
	}
	if bounds.Dy() > 0 {
		sy = float32(fbH) / bounds.Dy()
	}
	x := (pos.X() - bounds.Min.X()) * sx
	y := float32(fbH) - (pos.Y()-bounds.Min.Y())*sy
	c.uniforms.Set(graphics.Method2f, uniform.TypeVec2, shader.UniformMouse, x, y)
	return true
}
