package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/glslcanvas/canvas"
	"github.com/richinsley/glslcanvas/fetch"
	"github.com/richinsley/glslcanvas/glfwcontext"
	"github.com/richinsley/glslcanvas/graphics"
	"github.com/richinsley/glslcanvas/graphics/gldevice"
	"github.com/richinsley/glslcanvas/headless"
	"github.com/richinsley/glslcanvas/options"
	"github.com/richinsley/glslcanvas/record"
	"github.com/richinsley/glslcanvas/translator"
	"github.com/richinsley/glslcanvas/watch"
)

const textureTimeout = 30 * time.Second

func init() {
	runtime.LockOSThread()
}

func parseFlags() *options.CanvasOptions {
	opts := &options.CanvasOptions{}
	opts.Fragment = flag.String("fragment", "", "Fragment shader file or URL (default gradient if empty)")
	opts.Vertex = flag.String("vertex", "", "Vertex shader file or URL")
	opts.ConfigFile = flag.String("config", "", "Canvas config file (.toml, .yaml)")
	opts.Textures = flag.String("textures", "", "Comma separated texture files or URLs, bound as u_tex0, u_tex1, ...")
	opts.Help = flag.Bool("help", false, "Show help message")
	opts.Width = flag.Int("width", 800, "Width of the canvas")
	opts.Height = flag.Int("height", 600, "Height of the canvas")
	opts.Wrap = flag.String("wrap", "clamp", "Texture wrap mode: clamp or repeat")
	opts.Filter = flag.String("filter", "linear", "Texture filter: nearest, linear or mipmap")
	opts.Cache = flag.Bool("cache", true, "Cache downloaded textures")
	opts.Translate = flag.Bool("translate", true, "Translate WebGL shaders to desktop GLSL")
	opts.Watch = flag.Bool("watch", true, "Reload the fragment shader when its file changes")

	opts.Record = flag.Bool("record", false, "Render offscreen to a video file")
	opts.Headless = flag.Bool("headless", false, "Record through an EGL pbuffer without a display (Linux)")
	opts.Duration = flag.Float64("duration", 10.0, "Duration to record in seconds")
	opts.FPS = flag.Int("fps", 60, "Frames per second for recording")
	opts.OutputFile = flag.String("output", "output.mp4", "Output file name for recording")
	opts.FFmpegPath = flag.String("ffmpeg", "", "Path to ffmpeg executable")

	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()
	if *opts.Help {
		fmt.Println("glslcanvas: GLSL fragment shader viewer/recorder")
		flag.PrintDefaults()
		return
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if *opts.ConfigFile != "" {
		cfg, err := options.LoadConfig(*opts.ConfigFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		opts.Apply(cfg, explicit)
	}
	if flag.NArg() > 0 && !explicit["fragment"] {
		arg := flag.Arg(0)
		opts.Fragment = &arg
	}

	ctx := context.Background()
	fragment, err := loadSource(ctx, *opts.Fragment)
	if err != nil {
		log.Fatalf("Error loading fragment shader: %v", err)
	}
	vertex, err := loadSource(ctx, *opts.Vertex)
	if err != nil {
		log.Fatalf("Error loading vertex shader: %v", err)
	}

	var gctx graphics.Context
	var win *glfwcontext.Context
	if *opts.Headless {
		if !*opts.Record {
			log.Fatalf("-headless is only supported together with -record")
		}
		gctx, err = headless.New(*opts.Width, *opts.Height)
		if err != nil {
			log.Fatalf("Failed to create headless context: %v", err)
		}
	} else {
		if err := glfwcontext.InitGraphics(); err != nil {
			log.Fatalf("Failed to initialize graphics: %v", err)
		}
		defer glfwcontext.TerminateGraphics()

		// If recording, the window is hidden.
		win, err = glfwcontext.New(*opts.Width, *opts.Height, "glslcanvas", !*opts.Record)
		if err != nil {
			log.Fatalf("Failed to create window: %v", err)
		}
		gctx = win
	}
	defer gctx.Shutdown()
	gctx.MakeCurrent()

	dev, err := gldevice.New()
	if err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}
	defer dev.Release()
	log.Printf("OpenGL version: %s", gldevice.Version())

	clock := time.Now
	var frameTime time.Time
	if *opts.Record {
		// Frames are stamped with their position in the video, not wall time.
		// The zero time is the load epoch.
		clock = func() time.Time { return frameTime }
	}

	canvasOpts := []canvas.Option{
		canvas.WithLoader(&fetch.ImageLoader{UseCache: *opts.Cache}),
		canvas.WithSampler(opts.Sampler()),
		canvas.WithClock(clock),
	}
	if *opts.Translate {
		canvasOpts = append(canvasOpts, canvas.WithTranslator(translator.ANGLE{GLES: *opts.Headless}))
	}
	c, err := canvas.New(dev, gctx, canvasOpts...)
	if err != nil {
		log.Fatalf("Failed to create canvas: %v", err)
	}
	defer c.Destroy()

	if err := c.LoadTextures(opts.TextureList()); err != nil {
		log.Fatalf("Failed to load textures: %v", err)
	}
	if len(opts.Uniforms) > 0 {
		if err := c.SetUniforms(opts.Uniforms); err != nil {
			log.Printf("Warning: some uniforms were skipped: %v", err)
		}
	}
	if err := c.Load(fragment, vertex); err != nil {
		log.Fatalf("Failed to load shaders: %v", err)
	}
	if !c.IsValid() {
		log.Printf("Warning: fragment shader did not build: %v", c.LastError())
	}

	if *opts.Record {
		log.Println("Starting offscreen render loop...")
		if err := runRecord(c, opts, &frameTime); err != nil {
			log.Fatalf("Offscreen rendering failed: %v", err)
		}
		log.Printf("Successfully rendered to %s", *opts.OutputFile)
		return
	}

	log.Println("Starting interactive render loop...")
	runInteractive(ctx, c, win, opts, vertex)
}

func loadSource(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return fetch.Source(ctx, ref)
}

func runInteractive(ctx context.Context, c *canvas.Canvas, win *glfwcontext.Context, opts *options.CanvasOptions, vertex string) {
	reload := func() {
		fragment, err := loadSource(ctx, *opts.Fragment)
		if err != nil {
			log.Printf("Error reloading fragment shader: %v", err)
			return
		}
		if err := c.Load(fragment, vertex); err != nil {
			log.Printf("Error reloading shaders: %v", err)
			return
		}
		if !c.IsValid() {
			log.Printf("Warning: fragment shader did not build: %v", c.LastError())
		}
		win.SetTitle(windowTitle(c, *opts.Fragment))
		win.EndFrame()
	}
	win.RegisterKeyCallback(glfw.KeyR, reload)
	win.SetTitle(windowTitle(c, *opts.Fragment))

	var changes <-chan struct{}
	if *opts.Watch && *opts.Fragment != "" && !fetch.IsURL(*opts.Fragment) {
		w, err := watch.New(*opts.Fragment)
		if err != nil {
			log.Printf("Warning: hot reload disabled: %v", err)
		} else {
			defer w.Close()
			changes = w.Changes()
			log.Printf("Watching %s for changes", w.Path())
		}
	}

	glfwcontext.SwapInterval(1)
	win.EndFrame()

	lastW, lastH := win.GetFramebufferSize()
	for !win.ShouldClose() {
		select {
		case <-changes:
			log.Printf("Fragment shader changed, reloading")
			reload()
		default:
		}

		c.SetMouse(win.CursorPos())

		w, h := win.GetFramebufferSize()
		resized := w != lastW || h != lastH
		lastW, lastH = w, h

		if c.Render(resized) {
			win.EndFrame()
		} else {
			// Nothing to draw; sleep until input or the next frame slot.
			win.WaitEvents(1.0 / 60.0)
		}
	}
}

// windowTitle names the shader and flags a diagnostic fallback.
func windowTitle(c *canvas.Canvas, fragment string) string {
	title := "glslcanvas"
	if fragment != "" {
		title += " - " + filepath.Base(fragment)
	}
	if !c.IsValid() {
		title += " [shader error]"
	}
	return title
}

func runRecord(c *canvas.Canvas, opts *options.CanvasOptions, frameTime *time.Time) error {
	deadline := time.Now().Add(textureTimeout)
	for c.PendingTextures() > 0 {
		if time.Now().After(deadline) {
			log.Printf("Warning: recording with %d textures still loading", c.PendingTextures())
			break
		}
		c.Render(false)
		time.Sleep(10 * time.Millisecond)
	}

	_, width, height := c.ReadPixels()
	enc, err := record.Start(record.Options{
		Width:      width,
		Height:     height,
		FPS:        *opts.FPS,
		OutputFile: *opts.OutputFile,
		FFmpegPath: *opts.FFmpegPath,
	})
	if err != nil {
		return err
	}

	var start time.Time
	totalFrames := int64(*opts.Duration * float64(*opts.FPS))
	for frame := int64(0); frame < totalFrames; frame++ {
		*frameTime = start.Add(time.Duration(float64(frame) * float64(time.Second) / float64(*opts.FPS)))
		c.Render(true)
		pixels, _, _ := c.ReadPixels()
		if err := enc.WriteFrame(pixels, frame); err != nil {
			enc.Close()
			return err
		}
		if frame%int64(*opts.FPS) == 0 {
			fmt.Fprintf(os.Stderr, "\rRendered %d/%d frames", frame, totalFrames)
		}
	}
	fmt.Fprintln(os.Stderr)
	return enc.Close()
}
