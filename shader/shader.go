package shader

import (
	"strings"
)

// ─────────────────────────────────── Defaults ───────────────────────────────────

// DefaultVertex positions the full-viewport quad and forwards texcoords.
const DefaultVertex = `
#ifdef GL_ES
precision mediump float;
#endif

attribute vec2 a_position;
attribute vec2 a_texcoord;
varying vec2 v_texcoord;

void main() {
    gl_Position = vec4(a_position, 0.0, 1.0);
    v_texcoord = a_texcoord;
}
`

// DefaultFragment paints a position/time gradient when no fragment is given.
const DefaultFragment = `
#ifdef GL_ES
precision mediump float;
#endif

uniform vec2 u_resolution;
uniform float u_time;
varying vec2 v_texcoord;

void main() {
    vec2 st = gl_FragCoord.xy / u_resolution;
    gl_FragColor = vec4(st.x, st.y, abs(sin(u_time)), 1.0);
}
`

// DiagnosticFragment replaces a fragment shader that failed to build.
const DiagnosticFragment = `
#ifdef GL_ES
precision mediump float;
#endif

void main() {
    gl_FragColor = vec4(1.0);
}
`

// ─────────────────────────────── Standard uniforms ──────────────────────────────

const (
	UniformTime       = "u_time"
	UniformResolution = "u_resolution"
	UniformMouse      = "u_mouse"

	AttribPosition = "a_position"
	AttribTexcoord = "a_texcoord"

	// ResolutionSuffix names the vec2 uniform that accompanies each sampler.
	ResolutionSuffix = "Resolution"
)

// ─────────────────────────────── Source analysis ────────────────────────────────

// IsAnimated reports whether the fragment source uses time or mouse input.
// A token that appears more than once is taken to be read somewhere besides
// its declaration.
func IsAnimated(fragment string) bool {
	return strings.Count(fragment, UniformTime) > 1 ||
		strings.Count(fragment, UniformMouse) > 1
}

// Or returns source, or fallback when source is empty.
func Or(source, fallback string) string {
	if strings.TrimSpace(source) == "" {
		return fallback
	}
	return source
}
