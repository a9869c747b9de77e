package options

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/richinsley/glslcanvas/graphics"
	"gopkg.in/yaml.v3"
)

// CanvasOptions holds the command line settings of the glslcanvas host.
type CanvasOptions struct {
	Fragment   *string
	Vertex     *string
	ConfigFile *string
	Textures   *string // comma separated, bound as u_tex0, u_tex1, ...
	Help       *bool
	Width      *int
	Height     *int
	Wrap       *string
	Filter     *string
	Cache      *bool // keep downloaded textures in the user cache directory
	Translate  *bool // run sources through the ANGLE translator
	Watch      *bool // reload the fragment when its file changes
	// Recording options
	Record     *bool
	Headless   *bool // EGL pbuffer instead of a hidden window
	Duration   *float64
	FPS        *int
	OutputFile *string
	FFmpegPath *string
	// Uniforms come from the config file only.
	Uniforms map[string]any
}

// Config is the on-disk canvas description. Any field left empty keeps the
// command line value.
type Config struct {
	Fragment string         `toml:"fragment" yaml:"fragment"`
	Vertex   string         `toml:"vertex" yaml:"vertex"`
	Textures []string       `toml:"textures" yaml:"textures"`
	Uniforms map[string]any `toml:"uniforms" yaml:"uniforms"`
	Width    int            `toml:"width" yaml:"width"`
	Height   int            `toml:"height" yaml:"height"`
	Wrap     string         `toml:"wrap" yaml:"wrap"`
	Filter   string         `toml:"filter" yaml:"filter"`
	Cache    *bool          `toml:"cache" yaml:"cache"`
}

var (
	wrapModes   = []string{"clamp", "repeat"}
	filterModes = []string{"nearest", "linear", "mipmap"}
)

// LoadConfig reads a config file, choosing the decoder by extension:
// .toml, .yaml or .yml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := DecodeConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes data in the format named by ext and validates it.
func DecodeConfig(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("toml error at line %d column %d: %w", row, col, err)
			}
			return nil, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks sizes and sampler names.
func (c *Config) Validate() error {
	var errs []error
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", c.Width, c.Height))
	}
	if c.Wrap != "" && !contains(wrapModes, c.Wrap) {
		errs = append(errs, fmt.Errorf("unknown wrap mode %q, want one of %v", c.Wrap, wrapModes))
	}
	if c.Filter != "" && !contains(filterModes, c.Filter) {
		errs = append(errs, fmt.Errorf("unknown filter %q, want one of %v", c.Filter, filterModes))
	}
	return errors.Join(errs...)
}

// Apply copies every value set in cfg over the options. Flags named in
// explicit were given on the command line and win over the file.
func (o *CanvasOptions) Apply(cfg *Config, explicit map[string]bool) {
	setString := func(flag string, dst **string, v string) {
		if v != "" && !explicit[flag] {
			*dst = &v
		}
	}
	setInt := func(flag string, dst **int, v int) {
		if v > 0 && !explicit[flag] {
			*dst = &v
		}
	}

	setString("fragment", &o.Fragment, cfg.Fragment)
	setString("vertex", &o.Vertex, cfg.Vertex)
	setString("textures", &o.Textures, strings.Join(cfg.Textures, ","))
	setString("wrap", &o.Wrap, cfg.Wrap)
	setString("filter", &o.Filter, cfg.Filter)
	setInt("width", &o.Width, cfg.Width)
	setInt("height", &o.Height, cfg.Height)
	if cfg.Cache != nil && !explicit["cache"] {
		cache := *cfg.Cache
		o.Cache = &cache
	}
	if len(cfg.Uniforms) > 0 {
		if o.Uniforms == nil {
			o.Uniforms = make(map[string]any, len(cfg.Uniforms))
		}
		for k, v := range cfg.Uniforms {
			o.Uniforms[k] = v
		}
	}
}

// Sampler returns the texture sampler selected by the options.
func (o *CanvasOptions) Sampler() graphics.Sampler {
	s := graphics.DefaultSampler
	if o.Wrap != nil && *o.Wrap != "" {
		s.Wrap = *o.Wrap
	}
	if o.Filter != nil && *o.Filter != "" {
		s.Filter = *o.Filter
	}
	return s
}

// TextureList splits the comma separated texture option.
func (o *CanvasOptions) TextureList() []string {
	if o.Textures == nil {
		return nil
	}
	var out []string
	for _, t := range strings.Split(*o.Textures, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
