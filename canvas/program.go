package canvas

import (
	"fmt"
	"log"

	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/shader"
)

// Two triangles covering the viewport, in texture and clip space.
var (
	texcoordQuad = []float32{
		0.0, 0.0,
		1.0, 0.0,
		0.0, 1.0,
		0.0, 1.0,
		1.0, 0.0,
		1.0, 1.0,
	}
	positionQuad = []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
)

const quadVertices = 6

// Load builds a program from the given sources and makes it current. Empty
// sources select the defaults. A fragment shader that does not build is
// replaced by the diagnostic shader and the canvas becomes invalid; Load
// still succeeds. A vertex shader that does not build fails the call and
// the previous program stays in use.
func (c *Canvas) Load(fragment, vertex string) error {
	if c.destroyed {
		return ErrDestroyed
	}
	vertex = shader.Or(vertex, shader.DefaultVertex)
	fragment = shader.Or(fragment, shader.DefaultFragment)

	vs, vsNames, err := c.compile(graphics.StageVertex, vertex)
	if err != nil {
		c.lastErr = err
		log.Printf("Vertex shader rejected, keeping the current program: %v", err)
		return err
	}
	defer c.dev.DeleteShader(vs)

	valid := true
	program, fsNames, err := c.link(vs, fragment)
	if err != nil {
		valid = false
		c.lastErr = err
		log.Printf("Warning: fragment shader rejected, using the diagnostic shader: %v", err)
		program, fsNames, err = c.link(vs, shader.DiagnosticFragment)
		if err != nil {
			return fmt.Errorf("%w: diagnostic program: %v", ErrShaderLink, err)
		}
	}

	old := c.program
	c.dev.UseProgram(program)
	if old != 0 {
		c.dev.DeleteProgram(old)
	}
	c.program = program

	c.names = make(map[string]string, len(vsNames)+len(fsNames))
	for k, v := range vsNames {
		c.names[k] = v
	}
	for k, v := range fsNames {
		c.names[k] = v
	}

	c.vertexSource = vertex
	c.fragmentSource = fragment
	c.valid = valid
	if valid {
		c.lastErr = nil
	}
	c.animated = shader.IsAnimated(fragment)

	c.uniforms.Reset(program, c.mappedName)
	c.bindBuffers()
	c.uniforms.Replay()
	c.loadTime = c.now()

	log.Printf("Loaded program %d (valid=%t, animated=%t)", program, c.valid, c.animated)
	c.Render(true)
	return nil
}

// compile translates and compiles one stage.
func (c *Canvas) compile(stage graphics.Stage, source string) (uint32, map[string]string, error) {
	translated, err := c.translator.Translate(source, stage)
	if err != nil {
		return 0, nil, &ShaderCompileError{Stage: stage, Log: err.Error()}
	}
	id, err := c.dev.CompileShader(stage, translated.Code)
	if err != nil {
		return 0, nil, &ShaderCompileError{Stage: stage, Log: err.Error()}
	}
	return id, translated.Names, nil
}

// link compiles fragment and links it against the compiled vertex shader.
func (c *Canvas) link(vs uint32, fragment string) (uint32, map[string]string, error) {
	fs, names, err := c.compile(graphics.StageFragment, fragment)
	if err != nil {
		return 0, nil, err
	}
	defer c.dev.DeleteShader(fs)

	program, err := c.dev.LinkProgram(vs, fs)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrShaderLink, err)
	}
	return program, names, nil
}

// bindBuffers creates the quad buffers on first use and points the current
// program's attributes at them.
func (c *Canvas) bindBuffers() {
	if !c.hasBuffers {
		c.buffers[0] = c.dev.CreateBuffer(texcoordQuad)
		c.buffers[1] = c.dev.CreateBuffer(positionQuad)
		c.hasBuffers = true
	}
	texcoordLoc := c.dev.GetAttribLocation(c.program, c.mappedName(shader.AttribTexcoord))
	c.dev.BindAttribute(c.buffers[0], texcoordLoc, 2)
	positionLoc := c.dev.GetAttribLocation(c.program, c.mappedName(shader.AttribPosition))
	c.dev.BindAttribute(c.buffers[1], positionLoc, 2)
}

func (c *Canvas) mappedName(name string) string {
	if mapped, ok := c.names[name]; ok && mapped != "" {
		return mapped
	}
	return name
}

// Destroy releases the program, buffers and textures. The canvas cannot be
// used afterwards; image loads still in flight are discarded.
func (c *Canvas) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.animated = false
	c.valid = false
	c.forced = false

	c.textures.Close()

	c.dev.UseProgram(0)
	if c.program != 0 {
		c.dev.DeleteProgram(c.program)
		c.program = 0
	}
	if c.hasBuffers {
		c.dev.DeleteBuffer(c.buffers[0])
		c.dev.DeleteBuffer(c.buffers[1])
		c.hasBuffers = false
	}
	log.Printf("Canvas destroyed")
}
