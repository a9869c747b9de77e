package record

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	in, out := Args(Options{Width: 320, Height: 200, FPS: 30, OutputFile: "out.mp4"})
	assert.Equal(t, "rawvideo", in["f"])
	assert.Equal(t, "rgba", in["pix_fmt"])
	assert.Equal(t, "320x200", in["s"])
	assert.Equal(t, "30", in["framerate"])
	assert.Equal(t, "vflip", out["vf"])
	assert.NotContains(t, out, "tag:v")

	if runtime.GOOS != "darwin" {
		assert.Equal(t, "libx264", out["c:v"])
	}

	_, out = Args(Options{Width: 1, Height: 1, FPS: 1, OutputFile: "OUT.MP4", Codec: "hevc"})
	assert.Equal(t, "hvc1", out["tag:v"])
}

func TestStartValidates(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no size", Options{FPS: 30, OutputFile: "a.mp4"}},
		{"no fps", Options{Width: 2, Height: 2, OutputFile: "a.mp4"}},
		{"no output", Options{Width: 2, Height: 2, FPS: 30}},
		{"bad codec", Options{Width: 2, Height: 2, FPS: 30, OutputFile: "a.mp4", Codec: "vp9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Start(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestEncoderStreamsFramesInOrder(t *testing.T) {
	var got bytes.Buffer
	opts := Options{Width: 2, Height: 1, FPS: 10, OutputFile: "x.mp4"}
	e, err := start(opts, func(r io.Reader) error {
		_, err := io.Copy(&got, r)
		return err
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		frame := bytes.Repeat([]byte{byte(i)}, opts.FrameSize())
		require.NoError(t, e.WriteFrame(frame, int64(i)))
	}
	require.NoError(t, e.Close())

	require.Equal(t, 5*opts.FrameSize(), got.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, byte(i), got.Bytes()[i*opts.FrameSize()])
	}

	assert.ErrorIs(t, e.WriteFrame(make([]byte, opts.FrameSize()), 5), ErrClosed)
	assert.NoError(t, e.Close())
}

func TestEncoderRejectsWrongFrameSize(t *testing.T) {
	e, err := start(Options{Width: 2, Height: 2, FPS: 1, OutputFile: "x.mp4"}, func(r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.NoError(t, err)
	assert.Error(t, e.WriteFrame([]byte{1, 2, 3}, 0))
	assert.NoError(t, e.Close())
}

func TestEncoderReportsFFmpegFailure(t *testing.T) {
	boom := errors.New("exit status 1")
	opts := Options{Width: 1, Height: 1, FPS: 1, OutputFile: "x.mp4"}
	e, err := start(opts, func(r io.Reader) error { return boom })
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, e.WriteFrame(make([]byte, opts.FrameSize()), int64(i)))
	}
	assert.ErrorIs(t, e.Close(), boom)
}
