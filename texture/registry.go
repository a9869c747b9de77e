// Package texture owns the sampler textures of a canvas: GPU allocation,
// asynchronous image loading, and per-pass texture unit assignment.
package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/richinsley/glslcanvas/graphics"
)

// State is the load state of a texture.
type State int

const (
	// Pending textures sample a 1×1 placeholder until their image arrives.
	Pending State = iota
	Ready
	// Failed textures keep the placeholder for good; Err says why.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrLoadFailed = errors.New("texture load failed")
	ErrClosed     = errors.New("texture registry closed")
)

// placeholder is uploaded on creation so draws never wait on a load.
var placeholder = []byte{255, 255, 0, 255}

// Loader fetches and decodes an image.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, url string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (image.Image, error) { return f(ctx, url) }

// Texture describes one named sampler texture.
type Texture struct {
	Name   string
	URL    string
	Handle uint32
	Width  int
	Height int
	State  State
	Err    error
}

type completion struct {
	name string
	task uuid.UUID
	img  image.Image
	err  error
}

// Registry maps sampler names to textures. Everything but the image fetch
// runs on the goroutine that owns the graphics context; fetch results are
// queued and applied by Poll.
type Registry struct {
	dev      graphics.Device
	loader   Loader
	sampler  graphics.Sampler
	textures map[string]*Texture
	order    []string
	unit     int

	// tasks holds the in-flight fetches. A result whose task is gone is
	// stale and dropped.
	tasks   map[uuid.UUID]string
	results chan completion
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

func NewRegistry(dev graphics.Device, loader Loader, sampler graphics.Sampler) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		dev:      dev,
		loader:   loader,
		sampler:  sampler,
		textures: make(map[string]*Texture),
		tasks:    make(map[uuid.UUID]string),
		results:  make(chan completion, 16),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load creates the texture for name and starts fetching url. It reports
// false when name is already registered, and ErrClosed after Close.
func (r *Registry) Load(name, url string) (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	if _, ok := r.textures[name]; ok {
		return false, nil
	}

	tex := &Texture{
		Name:   name,
		URL:    url,
		Handle: r.dev.CreateTexture(),
		Width:  1,
		Height: 1,
		State:  Pending,
	}
	r.dev.UploadTexture(tex.Handle, r.sampler, 1, 1, placeholder)
	r.textures[name] = tex
	r.order = append(r.order, name)

	if r.loader == nil {
		r.fail(tex, errors.New("no image loader configured"))
		return true, nil
	}

	task := uuid.New()
	r.tasks[task] = name
	r.wg.Add(1)
	go r.fetch(name, url, task)
	return true, nil
}

func (r *Registry) fetch(name, url string, task uuid.UUID) {
	defer r.wg.Done()
	img, err := r.loader.Load(r.ctx, url)
	select {
	case r.results <- completion{name: name, task: task, img: img, err: err}:
	case <-r.ctx.Done():
	}
}

// Poll applies finished image loads without blocking. It reports whether
// any texture changed state, in which case the caller should redraw.
func (r *Registry) Poll() bool {
	changed := false
	for {
		select {
		case c := <-r.results:
			if r.apply(c) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (r *Registry) apply(c completion) bool {
	name, live := r.tasks[c.task]
	if !live || name != c.name {
		return false
	}
	delete(r.tasks, c.task)
	tex, ok := r.textures[name]
	if !ok || tex.State != Pending {
		return false
	}
	if c.err != nil {
		r.fail(tex, c.err)
		return true
	}
	if c.img == nil || c.img.Bounds().Empty() {
		r.fail(tex, errors.New("decoded image is empty"))
		return true
	}

	rgba := flipped(c.img)
	tex.Width, tex.Height = rgba.Rect.Dx(), rgba.Rect.Dy()
	r.dev.UploadTexture(tex.Handle, r.sampler, tex.Width, tex.Height, rgba.Pix)
	tex.State = Ready
	log.Printf("Texture %s loaded from %s (%dx%d)", tex.Name, tex.URL, tex.Width, tex.Height)
	return true
}

func (r *Registry) fail(tex *Texture, err error) {
	tex.State = Failed
	tex.Err = fmt.Errorf("%w: %s: %w", ErrLoadFailed, tex.URL, err)
	log.Printf("Warning: texture %s keeps its placeholder: %v", tex.Name, tex.Err)
}

// ResetUnits starts texture unit assignment over at unit 0.
func (r *Registry) ResetUnits() { r.unit = 0 }

// Bind binds the named texture to the next free texture unit and returns
// that unit with the texture's current size.
func (r *Registry) Bind(name string) (unit, width, height int, ok bool) {
	tex, found := r.textures[name]
	if !found || r.closed {
		return 0, 0, 0, false
	}
	unit = r.unit
	r.dev.ActiveTexture(unit)
	r.dev.BindTexture(tex.Handle)
	r.unit++
	return unit, tex.Width, tex.Height, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.textures[name]
	return ok
}

// Names lists registered textures in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Get returns a copy of the named texture.
func (r *Registry) Get(name string) (Texture, bool) {
	tex, ok := r.textures[name]
	if !ok {
		return Texture{}, false
	}
	return *tex, true
}

// InFlight counts fetches whose result has not been applied yet.
func (r *Registry) InFlight() int { return len(r.tasks) }

// Wait blocks until every started fetch has delivered or been cancelled.
func (r *Registry) Wait() { r.wg.Wait() }

// Close cancels outstanding fetches and deletes every texture. Results that
// arrive afterwards are discarded.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	clear(r.tasks)
	for _, name := range r.order {
		r.dev.DeleteTexture(r.textures[name].Handle)
	}
	r.textures = map[string]*Texture{}
	r.order = nil
}

// flipped converts img to tightly packed RGBA with the bottom row first,
// matching texcoord (0,0) at the lower-left corner.
func flipped(img image.Image) *image.RGBA {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	dst := image.NewRGBA(src.Bounds())
	height := src.Rect.Dy()
	rowSize := src.Rect.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := dst.Pix[y*dst.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return dst
}
