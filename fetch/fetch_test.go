package fetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{10, 20, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main(){}"), 0644))

	src, err := Source(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "void main(){}", src)

	src, err = Source(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "void main(){}", src)

	_, err = Source(context.Background(), filepath.Join(t.TempDir(), "missing.frag"))
	assert.Error(t, err)
}

func TestSourceFromHTTP(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		if r.URL.Path != "/shader.frag" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("uniform float u_time;"))
	}))
	defer srv.Close()

	src, err := Source(context.Background(), srv.URL+"/shader.frag")
	require.NoError(t, err)
	assert.Equal(t, "uniform float u_time;", src)
	assert.Contains(t, agent, "glslcanvas")

	_, err = Source(context.Background(), srv.URL+"/nope.frag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestImageLoaderDecodesPNG(t *testing.T) {
	data := pngBytes(t, 3, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	l := &ImageLoader{}
	img, err := l.Load(context.Background(), srv.URL+"/tex.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestImageLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 4, 4), 0644))

	img, err := (&ImageLoader{}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestDecodeRejectsNonImage(t *testing.T) {
	_, err := Decode([]byte("<html>not found</html>"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestImageLoaderCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&ImageLoader{}).Load(ctx, srv.URL+"/slow.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageLoaderCache(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("cache location is driven by XDG_CACHE_HOME on this platform only")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var hits atomic.Int32
	data := pngBytes(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	l := &ImageLoader{UseCache: true}
	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), srv.URL+"/cached.png")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.png"))
	assert.True(t, IsURL("http://example.com/a.png"))
	assert.False(t, IsURL("file:///tmp/a.png"))
	assert.False(t, IsURL("textures/a.png"))
}
