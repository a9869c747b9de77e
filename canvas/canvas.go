// Package canvas renders a fragment shader over a full-viewport quad. It
// owns the shader program, the uniform cache and the texture registry of a
// single drawable surface, and decides on each tick whether to draw.
//
// A Canvas is not safe for concurrent use; every method must be called from
// the goroutine that owns the graphics context.
package canvas

import (
	"errors"
	"fmt"
	"time"

	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/texture"
	"github.com/richinsley/glslcanvas/translator"
	"github.com/richinsley/glslcanvas/uniform"
)

const version = "0.0.1"

var (
	// ErrNoContext is returned by New when there is no device or surface.
	ErrNoContext = errors.New("no graphics context")
	// ErrDestroyed is returned by operations on a destroyed canvas.
	ErrDestroyed = errors.New("canvas destroyed")
	// ErrShaderCompile is matched by every ShaderCompileError.
	ErrShaderCompile = errors.New("shader compile error")
	// ErrShaderLink is returned when not even the diagnostic program links.
	ErrShaderLink = errors.New("shader link error")
	// ErrUnknownTexture is returned by TextureState for unregistered names.
	ErrUnknownTexture = errors.New("unknown texture")
)

// ShaderCompileError carries the translator or driver log of a failed stage.
type ShaderCompileError struct {
	Stage graphics.Stage
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("%v shader failed to compile: %s", e.Stage, e.Log)
}

func (e *ShaderCompileError) Unwrap() error { return ErrShaderCompile }

// Option configures a Canvas.
type Option func(*config)

type config struct {
	translator translator.Translator
	loader     texture.Loader
	sampler    graphics.Sampler
	now        func() time.Time
}

// WithTranslator sets the shader source translator. The default passes
// sources through unchanged.
func WithTranslator(t translator.Translator) Option {
	return func(c *config) { c.translator = t }
}

// WithLoader sets the image loader used for sampler textures.
func WithLoader(l texture.Loader) Option {
	return func(c *config) { c.loader = l }
}

// WithSampler sets wrap and filter modes for every texture.
func WithSampler(s graphics.Sampler) Option {
	return func(c *config) { c.sampler = s }
}

// WithClock replaces time.Now as the source of u_time.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Canvas draws one fragment shader onto one surface.
type Canvas struct {
	dev        graphics.Device
	surface    graphics.Surface
	translator translator.Translator
	now        func() time.Time

	program    uint32
	names      map[string]string
	buffers    [2]uint32
	hasBuffers bool

	uniforms *uniform.Cache
	textures *texture.Registry

	vertexSource   string
	fragmentSource string
	lastErr        error

	valid     bool
	animated  bool
	forced    bool
	destroyed bool
	loadTime  time.Time
}

// New returns a canvas drawing with dev into surface. No program exists
// until Load succeeds.
func New(dev graphics.Device, surface graphics.Surface, opts ...Option) (*Canvas, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrNoContext)
	}
	if surface == nil {
		return nil, fmt.Errorf("%w: nil surface", ErrNoContext)
	}

	cfg := config{
		translator: translator.Passthrough{},
		sampler:    graphics.DefaultSampler,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Canvas{
		dev:        dev,
		surface:    surface,
		translator: cfg.translator,
		now:        cfg.now,
		names:      map[string]string{},
		uniforms:   uniform.NewCache(dev),
		textures:   texture.NewRegistry(dev, cfg.loader, cfg.sampler),
	}
	c.loadTime = c.now()
	return c, nil
}

// IsValid reports whether the current program was built from the user's
// fragment shader rather than the diagnostic one.
func (c *Canvas) IsValid() bool { return c.valid }

// IsAnimated reports whether the loaded fragment reads u_time or u_mouse.
func (c *Canvas) IsAnimated() bool { return c.animated }

// IsDestroyed reports whether Destroy has been called.
func (c *Canvas) IsDestroyed() bool { return c.destroyed }

// LastError returns the most recent shader build failure, if the current
// program is not valid or the last Load was rejected.
func (c *Canvas) LastError() error { return c.lastErr }

// FragmentSource returns the fragment source of the current program.
func (c *Canvas) FragmentSource() string { return c.fragmentSource }

// VertexSource returns the vertex source of the current program.
func (c *Canvas) VertexSource() string { return c.vertexSource }

// Uniform returns the cached state of a uniform.
func (c *Canvas) Uniform(name string) (uniform.State, bool) { return c.uniforms.Get(name) }

// Texture returns a snapshot of a registered texture.
func (c *Canvas) Texture(name string) (texture.Texture, bool) { return c.textures.Get(name) }

// TextureState returns the load state of a texture and, for failed
// textures, the reason. Names never registered return ErrUnknownTexture.
func (c *Canvas) TextureState(name string) (texture.State, error) {
	tex, ok := c.textures.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTexture, name)
	}
	return tex.State, tex.Err
}

// PendingTextures counts textures whose image has not arrived yet.
func (c *Canvas) PendingTextures() int { return c.textures.InFlight() }

// Version returns the canvas library version.
func Version() string { return version }
