package audio

import "log/slog"

// Defaults requested from the sound server; the negotiated values may
// differ.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
)

// SampleFormat is the on-wire sample encoding.
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatS16
	FormatS32
	FormatU8
	FormatUnknown
)

func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatS16:
		return "s16"
	case FormatS32:
		return "s32"
	case FormatU8:
		return "u8"
	}
	return "unknown"
}

// bytes returns the per-sample byte width, or 0 when unknown.
func (f SampleFormat) bytes() int {
	switch f {
	case FormatF32, FormatS32:
		return 4
	case FormatS16:
		return 2
	case FormatU8:
		return 1
	}
	return 0
}

// Format is the negotiated stream format. frameBytes is tracked
// explicitly so an unsupported sample format can keep the last known
// frame size instead of corrupting block accounting.
type Format struct {
	SampleRate uint32
	Channels   uint32
	frameBytes int
}

// NewFormat builds a format for f32 samples, clamping channels to at
// least one.
func NewFormat(sampleRate, channels uint32) Format {
	f := Format{SampleRate: sampleRate, Channels: max(channels, 1)}
	f.frameBytes = int(f.Channels) * FormatF32.bytes()
	return f
}

// Update renegotiates the format. Channels are clamped to at least one.
// An unsupported sample format keeps the recorded frame size and logs a
// warning; it must not panic.
func (f *Format) Update(sampleRate, channels uint32, sample SampleFormat, log *slog.Logger) {
	f.SampleRate = sampleRate
	f.Channels = max(channels, 1)
	if width := sample.bytes(); width > 0 {
		f.frameBytes = int(f.Channels) * width
	} else if log != nil {
		log.Warn("audio: unsupported sample format, keeping frame size",
			"format", sample, "frame_bytes", f.frameBytes)
	}
}

// FrameBytes is the byte size of one interleaved frame.
func (f Format) FrameBytes() int {
	return f.frameBytes
}
