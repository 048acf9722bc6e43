package audio

import (
	"log/slog"
	"testing"
	"time"
)

func TestCaptureBufferFIFO(t *testing.T) {
	buf := NewCaptureBuffer()
	buf.TryPush(CapturedAudio{Samples: []float32{1}})
	buf.TryPush(CapturedAudio{Samples: []float32{2}})

	first, ok := buf.PopWait(0)
	if !ok || first.Samples[0] != 1 {
		t.Fatalf("first pop = %+v ok=%v, want sample 1", first, ok)
	}
	second, ok := buf.PopWait(0)
	if !ok || second.Samples[0] != 2 {
		t.Fatalf("second pop = %+v ok=%v, want sample 2", second, ok)
	}
}

func TestCaptureBufferDropsIncomingWhenFull(t *testing.T) {
	buf := NewCaptureBuffer()
	for i := 0; i < CaptureBufferCapacity; i++ {
		buf.TryPush(CapturedAudio{Samples: []float32{float32(i)}})
	}
	if buf.DroppedFrames() != 0 {
		t.Fatalf("dropped = %d before overflow", buf.DroppedFrames())
	}

	buf.TryPush(CapturedAudio{Samples: []float32{-1}})
	buf.TryPush(CapturedAudio{Samples: []float32{-2}})

	if buf.DroppedFrames() != 2 {
		t.Errorf("dropped = %d, want 2", buf.DroppedFrames())
	}
	// The queued frames survive; the incoming ones were dropped.
	frame, ok := buf.PopWait(0)
	if !ok || frame.Samples[0] != 0 {
		t.Errorf("oldest frame = %+v ok=%v, want sample 0", frame, ok)
	}
}

func TestPopWaitTimesOut(t *testing.T) {
	buf := NewCaptureBuffer()
	start := time.Now()
	if _, ok := buf.PopWait(10 * time.Millisecond); ok {
		t.Fatal("expected timeout")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
}

func TestPopWaitWakesOnPush(t *testing.T) {
	buf := NewCaptureBuffer()
	go func() {
		time.Sleep(5 * time.Millisecond)
		buf.TryPush(CapturedAudio{Samples: []float32{7}})
	}()
	frame, ok := buf.PopWait(time.Second)
	if !ok || frame.Samples[0] != 7 {
		t.Fatalf("frame = %+v ok=%v, want sample 7", frame, ok)
	}
}

func TestFormatClampsChannels(t *testing.T) {
	f := NewFormat(44100, 0)
	if f.Channels != 1 {
		t.Errorf("channels = %d, want clamped to 1", f.Channels)
	}
	f.Update(48000, 0, FormatS16, slog.New(slog.DiscardHandler))
	if f.Channels != 1 {
		t.Errorf("channels after update = %d, want 1", f.Channels)
	}
	if f.FrameBytes() != 2 {
		t.Errorf("frame bytes = %d, want 2 for mono s16", f.FrameBytes())
	}
}

func TestUnsupportedFormatKeepsFrameSize(t *testing.T) {
	f := NewFormat(44100, 2)
	before := f.FrameBytes()

	f.Update(44100, 2, FormatUnknown, slog.New(slog.DiscardHandler))

	if f.FrameBytes() != before {
		t.Errorf("frame bytes = %d, want unchanged %d", f.FrameBytes(), before)
	}
}

func TestSamplesToF32(t *testing.T) {
	s16 := SamplesToF32([]byte{0x00, 0x40}, FormatS16) // 16384
	if len(s16) != 1 || s16[0] != 0.5 {
		t.Errorf("s16 conversion = %v, want [0.5]", s16)
	}
	u8 := SamplesToF32([]byte{128, 255, 0}, FormatU8)
	if len(u8) != 3 || u8[0] != 0 {
		t.Errorf("u8 conversion = %v, want midpoint 0 first", u8)
	}
	if SamplesToF32([]byte{1, 2}, FormatUnknown) != nil {
		t.Error("unknown format should convert to nil")
	}
}
