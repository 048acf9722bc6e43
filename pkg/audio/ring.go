// Package audio captures a shared audio stream and turns it into the
// bar spectrum rendered by the visualizer module. Capture runs on its
// own OS thread; the DSP engine is owned by the UI task and fed through
// a bounded frame ring.
package audio

import (
	"sync/atomic"
	"time"
)

// CaptureBufferCapacity bounds the frame ring between the capture
// thread and the consumer.
const CaptureBufferCapacity = 256

// CapturedAudio is one block of interleaved f32 samples with the format
// it was captured under.
type CapturedAudio struct {
	Samples    []float32
	Channels   uint32
	SampleRate uint32
}

// CaptureBuffer is the single-producer/single-consumer frame queue.
// When the ring is full the incoming frame is dropped, never a queued
// one: latency wins over completeness, and the drop counter keeps the
// loss observable.
type CaptureBuffer struct {
	frames  chan CapturedAudio
	dropped atomic.Uint64
}

// NewCaptureBuffer builds a ring with CaptureBufferCapacity slots.
func NewCaptureBuffer() *CaptureBuffer {
	return &CaptureBuffer{frames: make(chan CapturedAudio, CaptureBufferCapacity)}
}

// TryPush enqueues a frame without blocking. A full ring drops the
// frame and bumps the counter.
func (b *CaptureBuffer) TryPush(frame CapturedAudio) {
	select {
	case b.frames <- frame:
	default:
		b.dropped.Add(1)
	}
}

// PopWait dequeues the next frame, waiting up to timeout. The second
// return is false on timeout.
func (b *CaptureBuffer) PopWait(timeout time.Duration) (CapturedAudio, bool) {
	select {
	case frame := <-b.frames:
		return frame, true
	default:
	}
	if timeout <= 0 {
		return CapturedAudio{}, false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case frame := <-b.frames:
		return frame, true
	case <-t.C:
		return CapturedAudio{}, false
	}
}

// DroppedFrames is the monotonic count of frames lost to overflow.
func (b *CaptureBuffer) DroppedFrames() uint64 {
	return b.dropped.Load()
}
