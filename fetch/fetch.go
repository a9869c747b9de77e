// Package fetch resolves shader sources and texture images from files or
// HTTP URLs.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/h2non/filetype"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when fetched bytes are not a known image format.
var ErrNotImage = errors.New("not an image")

// Global client with a custom User-Agent header.
var httpClient = &http.Client{
	Transport: &headerTransport{Transport: http.DefaultTransport},
}

type headerTransport struct {
	Transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "glslcanvas (+https://github.com/richinsley/glslcanvas)")
	return t.Transport.RoundTrip(req)
}

// IsURL reports whether ref names an http(s) resource.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Source returns shader text for ref, which may be an http(s) URL, a
// file:// URL or a local path.
func Source(ctx context.Context, ref string) (string, error) {
	data, err := read(ctx, httpClient, ref)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func read(ctx context.Context, client *http.Client, ref string) ([]byte, error) {
	if !IsURL(ref) {
		path := strings.TrimPrefix(ref, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load %s, status code: %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", ref, err)
	}
	return data, nil
}

// ImageLoader downloads and decodes texture images. It satisfies
// texture.Loader.
type ImageLoader struct {
	// Client overrides the default HTTP client.
	Client *http.Client
	// UseCache keeps downloaded images in the user cache directory.
	UseCache bool
}

func (l *ImageLoader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return httpClient
}

// Load fetches ref and decodes it.
func (l *ImageLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.bytes(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (l *ImageLoader) bytes(ctx context.Context, ref string) ([]byte, error) {
	if !l.UseCache || !IsURL(ref) {
		return read(ctx, l.client(), ref)
	}

	cacheDir, err := getCacheDir("media")
	if err != nil {
		log.Printf("Warning: image cache disabled: %v", err)
		return read(ctx, l.client(), ref)
	}
	cachePath := filepath.Join(cacheDir, cacheKey(ref))
	if data, err := os.ReadFile(cachePath); err == nil {
		if filetype.IsImage(data) {
			return data, nil
		}
		log.Printf("Warning: cached file %s is not an image. Redownloading...", cachePath)
	}

	data, err := read(ctx, l.client(), ref)
	if err != nil {
		return nil, err
	}
	if filetype.IsImage(data) {
		if err := os.WriteFile(cachePath, data, 0644); err != nil {
			log.Printf("Warning: failed to save media to cache at %s: %v", cachePath, err)
		}
	}
	return data, nil
}

// Decode sniffs data and decodes it as an image.
func Decode(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		return nil, ErrNotImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("failed to decode %s image (%s): %w", kind.Extension, format, err)
	}
	return img, nil
}

func cacheKey(ref string) string {
	sum := sha1.Sum([]byte(ref))
	return hex.EncodeToString(sum[:]) + filepath.Ext(ref)
}

// getCacheDir determines the appropriate OS-specific cache directory.
func getCacheDir(subdir string) (string, error) {
	var baseCacheDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		baseCacheDir = os.Getenv("LOCALAPPDATA")
		if baseCacheDir == "" {
			err = fmt.Errorf("LOCALAPPDATA environment variable not set")
		}
	case "darwin":
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			err = fmt.Errorf("HOME environment variable not set")
		} else {
			baseCacheDir = filepath.Join(homeDir, "Library", "Caches")
		}
	default: // linux, bsd, etc.
		baseCacheDir = os.Getenv("XDG_CACHE_HOME")
		if baseCacheDir == "" {
			homeDir := os.Getenv("HOME")
			if homeDir == "" {
				err = fmt.Errorf("HOME environment variable not set")
			} else {
				baseCacheDir = filepath.Join(homeDir, ".cache")
			}
		}
	}

	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(baseCacheDir, "glslcanvas", subdir)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory at %s: %w", cacheDir, err)
	}
	return cacheDir, nil
}
