package texture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/graphics/gltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoRows is 2×2 with a red top row and a blue bottom row.
func twoRows() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{0, 0, 255, 255})
	return img
}

func staticLoader(img image.Image, err error) (Loader, *atomic.Int32) {
	calls := &atomic.Int32{}
	return LoaderFunc(func(ctx context.Context, url string) (image.Image, error) {
		calls.Add(1)
		return img, err
	}), calls
}

func TestLoadIsIdempotentPerName(t *testing.T) {
	dev := gltest.New()
	loader, calls := staticLoader(twoRows(), nil)
	r := NewRegistry(dev, loader, graphics.DefaultSampler)

	for i, url := range []string{"a.png", "a.png", "b.png"} {
		created, err := r.Load("u_tex0", url)
		require.NoError(t, err)
		assert.Equal(t, i == 0, created, url)
	}
	r.Wait()

	assert.Len(t, dev.Textures, 1)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"u_tex0"}, r.Names())
}

func TestPendingTextureHasPlaceholder(t *testing.T) {
	dev := gltest.New()
	block := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, url string) (image.Image, error) {
		<-block
		return twoRows(), nil
	})
	r := NewRegistry(dev, loader, graphics.DefaultSampler)
	defer close(block)

	r.Load("u_tex0", "a.png")
	tex, ok := r.Get("u_tex0")
	require.True(t, ok)
	assert.Equal(t, Pending, tex.State)

	gpu := dev.Textures[tex.Handle]
	assert.Equal(t, 1, gpu.Width)
	assert.Equal(t, 1, gpu.Height)
	assert.Equal(t, placeholder, gpu.Pixels)

	assert.False(t, r.Poll())
}

func TestPollUploadsFlippedImage(t *testing.T) {
	dev := gltest.New()
	loader, _ := staticLoader(twoRows(), nil)
	r := NewRegistry(dev, loader, graphics.Sampler{Wrap: "repeat", Filter: "nearest"})

	r.Load("u_tex0", "a.png")
	r.Wait()
	assert.True(t, r.Poll())
	assert.False(t, r.Poll())

	tex, _ := r.Get("u_tex0")
	assert.Equal(t, Ready, tex.State)
	assert.NoError(t, tex.Err)
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, 2, tex.Height)

	gpu := dev.Textures[tex.Handle]
	assert.Equal(t, 2, gpu.Uploads)
	assert.Equal(t, graphics.Sampler{Wrap: "repeat", Filter: "nearest"}, gpu.Sampler)
	// First uploaded row is the image's bottom (blue) row.
	assert.Equal(t, []byte{0, 0, 255, 255, 0, 0, 255, 255}, gpu.Pixels[:8])
	assert.Equal(t, []byte{255, 0, 0, 255, 255, 0, 0, 255}, gpu.Pixels[8:])
}

func TestFailedLoadIsSurfaced(t *testing.T) {
	dev := gltest.New()
	loader, _ := staticLoader(nil, errors.New("404 not found"))
	r := NewRegistry(dev, loader, graphics.DefaultSampler)

	r.Load("u_tex0", "missing.png")
	r.Wait()
	assert.True(t, r.Poll())

	tex, _ := r.Get("u_tex0")
	assert.Equal(t, Failed, tex.State)
	assert.ErrorIs(t, tex.Err, ErrLoadFailed)
	assert.Contains(t, tex.Err.Error(), "404 not found")
	// Still bindable with the placeholder.
	assert.Equal(t, 1, dev.Textures[tex.Handle].Uploads)
	_, w, h, ok := r.Bind("u_tex0")
	assert.True(t, ok)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestLoadWithoutLoaderFails(t *testing.T) {
	r := NewRegistry(gltest.New(), nil, graphics.DefaultSampler)
	created, err := r.Load("u_tex0", "a.png")
	require.NoError(t, err)
	assert.True(t, created)
	tex, _ := r.Get("u_tex0")
	assert.Equal(t, Failed, tex.State)
	assert.Zero(t, r.InFlight())
}

func TestBindAssignsUnitsPerPass(t *testing.T) {
	dev := gltest.New()
	loader, _ := staticLoader(twoRows(), nil)
	r := NewRegistry(dev, loader, graphics.DefaultSampler)
	r.Load("u_tex0", "a.png")
	r.Load("u_tex1", "b.png")

	for pass := 0; pass < 2; pass++ {
		r.ResetUnits()
		for i, name := range r.Names() {
			unit, _, _, ok := r.Bind(name)
			require.True(t, ok)
			assert.Equal(t, i, unit)
			tex, _ := r.Get(name)
			assert.Equal(t, tex.Handle, dev.Bound[unit])
		}
	}

	_, _, _, ok := r.Bind("u_unknown")
	assert.False(t, ok)
}

func TestCloseDropsLateResults(t *testing.T) {
	dev := gltest.New()
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, url string) (image.Image, error) {
		<-release
		return twoRows(), nil
	})
	r := NewRegistry(dev, loader, graphics.DefaultSampler)
	r.Load("u_tex0", "a.png")
	tex, _ := r.Get("u_tex0")

	r.Close()
	close(release)
	r.Wait()

	assert.False(t, r.Poll())
	assert.True(t, dev.Textures[tex.Handle].Deleted)
	assert.Equal(t, 1, dev.Textures[tex.Handle].Uploads)
	assert.Equal(t, 0, dev.LiveTextures())

	created, err := r.Load("u_tex1", "b.png")
	assert.False(t, created)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, r.Names())
	assert.Zero(t, r.InFlight())
}

func TestResultsAreMatchedByTask(t *testing.T) {
	dev := gltest.New()
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, url string) (image.Image, error) {
		<-release
		return twoRows(), nil
	})
	r := NewRegistry(dev, loader, graphics.DefaultSampler)
	r.Load("u_tex0", "a.png")
	require.Equal(t, 1, r.InFlight())

	// A result for a task the registry never started is ignored.
	r.results <- completion{name: "u_tex0", task: uuid.New(), img: twoRows()}
	assert.False(t, r.Poll())
	tex, _ := r.Get("u_tex0")
	assert.Equal(t, Pending, tex.State)
	assert.Equal(t, 1, r.InFlight())

	close(release)
	r.Wait()
	assert.True(t, r.Poll())
	tex, _ = r.Get("u_tex0")
	assert.Equal(t, Ready, tex.State)
	assert.Zero(t, r.InFlight())
}

func TestCloseCancelsFetchContext(t *testing.T) {
	dev := gltest.New()
	loader := LoaderFunc(func(ctx context.Context, url string) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := NewRegistry(dev, loader, graphics.DefaultSampler)
	r.Load("u_tex0", "slow.png")
	r.Close()
	r.Wait()
	assert.False(t, r.Poll())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
}
