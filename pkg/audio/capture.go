package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/gordonklaus/portaudio"
)

// captureBlockFrames is the per-read block size requested from the
// sound server, per channel.
const captureBlockFrames = 512

// Capture owns the sound-server connection on a dedicated OS thread.
// Captured blocks are converted to f32 and pushed into the ring; when
// the ring is full the block is dropped there, never queued.
type Capture struct {
	buf    *CaptureBuffer
	format Format
	log    *slog.Logger
}

// NewCapture builds a capture front-end for the given ring.
func NewCapture(buf *CaptureBuffer, log *slog.Logger) *Capture {
	if log == nil {
		log = slog.Default()
	}
	return &Capture{
		buf:    buf,
		format: NewFormat(DefaultSampleRate, DefaultChannels),
		log:    log,
	}
}

// Format is the currently negotiated capture format.
func (c *Capture) Format() Format {
	return c.format
}

// Run opens the default input stream and pumps blocks into the ring
// until ctx is done or the stream fails. A failure logs and ends the
// capture; the consumer then sees an empty ring and treats it as
// silence.
func (c *Capture) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: initialize: %w", err)
	}
	defer portaudio.Terminate()

	channels := int(c.format.Channels)
	in := make([]float32, captureBlockFrames*channels)
	stream, err := portaudio.OpenDefaultStream(
		channels, 0, float64(c.format.SampleRate), captureBlockFrames, in)
	if err != nil {
		return fmt.Errorf("audio: open stream: %w", err)
	}
	defer stream.Close()

	// The device may not honor the requested rate.
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		c.format.Update(uint32(info.SampleRate), c.format.Channels, FormatF32, c.log)
	}
	c.log.Info("audio: capture started",
		"sample_rate", c.format.SampleRate, "channels", c.format.Channels)

	if err := stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}
	defer stream.Stop()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := stream.Read(); err != nil {
			c.log.Error("audio: capture read", "error", err)
			return fmt.Errorf("audio: read stream: %w", err)
		}
		// The stream reuses its buffer between reads.
		samples := make([]float32, len(in))
		copy(samples, in)
		c.buf.TryPush(CapturedAudio{
			Samples:    samples,
			Channels:   c.format.Channels,
			SampleRate: c.format.SampleRate,
		})
	}
}

// SamplesToF32 converts a raw capture block to f32 according to the
// sample format. Unsupported formats return nil.
func SamplesToF32(data []byte, format SampleFormat) []float32 {
	switch format {
	case FormatF32:
		out := make([]float32, len(data)/4)
		for i := range out {
			bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 |
				uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
			out[i] = math.Float32frombits(bits)
		}
		return out
	case FormatS16:
		out := make([]float32, len(data)/2)
		for i := range out {
			v := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
			out[i] = float32(v) / 32768.0
		}
		return out
	case FormatS32:
		out := make([]float32, len(data)/4)
		for i := range out {
			v := int32(uint32(data[i*4]) | uint32(data[i*4+1])<<8 |
				uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24)
			out[i] = float32(v) / 2147483648.0
		}
		return out
	case FormatU8:
		out := make([]float32, len(data))
		for i, b := range data {
			out[i] = (float32(b) - 128.0) / 128.0
		}
		return out
	}
	return nil
}
