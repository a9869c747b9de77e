// Package translator turns WebGL-flavoured GLSL into source the host driver
// accepts, and reports the names the translation gave to user identifiers.
package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinsley/glslcanvas/graphics"
	gst "github.com/richinsley/goshadertranslator"
)

// Shader is a translated shader stage.
type Shader struct {
	Code string
	// Names maps declared identifiers (uniforms, attributes) to the names
	// they carry in Code.
	Names map[string]string
}

// MappedName returns the translated name for name, or name itself.
func (s *Shader) MappedName(name string) string {
	if s != nil {
		if mapped, ok := s.Names[name]; ok && mapped != "" {
			return mapped
		}
	}
	return name
}

// Translator converts a shader stage's source.
type Translator interface {
	Translate(source string, stage graphics.Stage) (*Shader, error)
}

// Passthrough hands sources to the driver unchanged.
type Passthrough struct{}

func (Passthrough) Translate(source string, stage graphics.Stage) (*Shader, error) {
	return &Shader{Code: source, Names: map[string]string{}}, nil
}

var (
	translator     *gst.ShaderTranslator
	translatorErr  error
	translatorOnce sync.Once
)

func getTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, translatorErr
}

// ANGLE validates sources against the WebGL spec and emits desktop GLSL 4.10
// or, for GLES contexts, ESSL.
type ANGLE struct {
	GLES bool
}

func (a ANGLE) Translate(source string, stage graphics.Stage) (*Shader, error) {
	t, err := getTranslator()
	if err != nil {
		return nil, fmt.Errorf("failed to start shader translator: %w", err)
	}

	outputFormat := gst.OutputFormatGLSL410
	if a.GLES {
		outputFormat = gst.OutputFormatESSL
	}
	translated, err := t.TranslateShader(source, stage.String(), gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%v shader translation failed: %w", stage, err)
	}

	out := &Shader{Code: translated.Code, Names: make(map[string]string, len(translated.Variables))}
	for name, v := range translated.Variables {
		out.Names[name] = v.MappedName
	}
	return out, nil
}
