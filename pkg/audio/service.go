package audio

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// BarCount is the number of spectrum bars per channel.
const BarCount = 12

// maxReplayFrames bounds how often the last real block is re-processed
// after a burst ends, letting gravity drain before silence ticks take
// over.
const maxReplayFrames = 3

// animationFloor is the bar level below which animation stops.
const animationFloor = 0.001

// Service owns the DSP engine and the visualizer's published state. It
// lives on the UI task; only the capture thread runs elsewhere.
type Service struct {
	buf    *CaptureBuffer
	engine *Engine

	bars       []float32
	lastSample []float32

	silenceFrames int
	animating     bool

	// Gradient is the bar coloring published by the media aggregator;
	// nil falls back to the module's configured color.
	Gradient []colorful.Color
}

// NewService wires the engine to a capture ring under the given format.
func NewService(buf *CaptureBuffer, format Format) *Service {
	engine := NewEngine(format.SampleRate, int(format.Channels), BarCount)
	return &Service{
		buf:    buf,
		engine: engine,
		bars:   engine.InitBars(),
	}
}

// Bars is the most recent bar vector, interleaved by channel. The
// slice is owned by the service; the view only reads it.
func (s *Service) Bars() []float32 {
	return s.bars
}

// Animating reports whether the 60 Hz frame timer should keep running.
func (s *Service) Animating() bool {
	return s.animating
}

// PopFrame pulls the next captured block, waiting up to timeout.
func (s *Service) PopFrame(timeout time.Duration) (CapturedAudio, bool) {
	return s.buf.PopWait(timeout)
}

// DroppedFrames exposes the capture ring's overflow counter.
func (s *Service) DroppedFrames() uint64 {
	return s.buf.DroppedFrames()
}

// Ingest processes a fresh capture block and restarts the frame timer.
func (s *Service) Ingest(samples []float32) {
	s.engine.Process(samples, s.bars)
	s.lastSample = append(s.lastSample[:0], samples...)
	s.silenceFrames = 0
	s.animating = true
}

// Tick advances one animation frame with no new data. The last block is
// replayed a few times so gravity drains smoothly, then silence ticks
// age the ring until every bar settles under the animation floor.
func (s *Service) Tick() {
	if s.silenceFrames < maxReplayFrames && len(s.lastSample) > 0 {
		s.silenceFrames++
		s.engine.Process(s.lastSample, s.bars)
		s.animating = true
		return
	}

	s.engine.Process(nil, s.bars)
	s.animating = false
	for _, v := range s.bars {
		if v > animationFloor {
			s.animating = true
			return
		}
	}
}

// SetGradient replaces the published gradient; nil clears it.
func (s *Service) SetGradient(g []colorful.Color) {
	s.Gradient = g
}
