// Package record encodes rendered frames to a video file by piping raw RGBA
// pixels into ffmpeg.
package record

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const numBuffers = 3

// ErrClosed is returned by WriteFrame after Close or after ffmpeg exited.
var ErrClosed = errors.New("encoder closed")

// Options describes the output video.
type Options struct {
	Width      int
	Height     int
	FPS        int
	OutputFile string
	// Codec is "h264" (default) or "hevc".
	Codec string
	// FFmpegPath overrides the ffmpeg executable found on PATH.
	FFmpegPath string
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", o.Width, o.Height)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", o.FPS)
	}
	if o.OutputFile == "" {
		return errors.New("no output file")
	}
	switch o.Codec {
	case "", "h264", "hevc":
	default:
		return fmt.Errorf("unsupported codec %q", o.Codec)
	}
	return nil
}

// FrameSize is the byte length of one RGBA frame.
func (o Options) FrameSize() int { return o.Width * o.Height * 4 }

// Frame is one read-back framebuffer, bottom row first.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Args builds the ffmpeg input and output arguments. Frames arrive bottom
// row first, so the output is flipped vertically.
func Args(o Options) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", o.Width, o.Height),
		"framerate": fmt.Sprintf("%d", o.FPS),
	}

	outputArgs = ffmpeg.KwArgs{
		"vf":      "vflip",
		"pix_fmt": "yuv420p",
	}

	hevc := o.Codec == "hevc"
	switch runtime.GOOS {
	case "darwin":
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
		outputArgs["b:v"] = "25M"
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
		outputArgs["crf"] = "18"
	}

	if hevc && strings.EqualFold(filepath.Ext(o.OutputFile), ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// Encoder consumes frames on a background goroutine and streams them to
// ffmpeg.
type Encoder struct {
	opts   Options
	frames chan *Frame
	done   chan error
	closed bool
	err    error
}

// Start launches ffmpeg for o.
func Start(o Options) (*Encoder, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	inputArgs, outputArgs := Args(o)
	return start(o, func(r io.Reader) error {
		cmd := ffmpeg.Input("pipe:", inputArgs).
			Output(o.OutputFile, outputArgs).
			OverWriteOutput().WithInput(r).ErrorToStdOut()
		if o.FFmpegPath != "" {
			cmd = cmd.SetFfmpegPath(o.FFmpegPath)
		}
		return cmd.Run()
	})
}

func start(o Options, run func(io.Reader) error) (*Encoder, error) {
	e := &Encoder{
		opts:   o,
		frames: make(chan *Frame, numBuffers),
		done:   make(chan error, 1),
	}
	pipeReader, pipeWriter := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := run(pipeReader)
		// Unblock the writer if ffmpeg exits early.
		pipeReader.CloseWithError(ErrClosed)
		errc <- err
	}()
	go e.consume(pipeWriter, errc)
	return e, nil
}

// consume is the consumer side of the frame channel.
func (e *Encoder) consume(pw *io.PipeWriter, errc <-chan error) {
	var writeErr error
	for frame := range e.frames {
		if writeErr != nil {
			continue
		}
		if _, err := pw.Write(frame.Pixels); err != nil {
			log.Printf("Error writing frame %d to ffmpeg: %v", frame.PTS, err)
			writeErr = err
		}
	}
	pw.Close()
	err := <-errc
	if err == nil {
		err = writeErr
	}
	e.done <- err
}

// WriteFrame queues pixels for encoding. The slice must not be modified
// afterwards.
func (e *Encoder) WriteFrame(pixels []byte, pts int64) error {
	if e.closed {
		return ErrClosed
	}
	if len(pixels) != e.opts.FrameSize() {
		return fmt.Errorf("frame %d has %d bytes, want %d", pts, len(pixels), e.opts.FrameSize())
	}
	e.frames <- &Frame{Pixels: pixels, PTS: pts}
	return nil
}

// Close flushes queued frames, waits for ffmpeg to finish and returns its
// error.
func (e *Encoder) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	close(e.frames)
	e.err = <-e.done
	return e.err
}
