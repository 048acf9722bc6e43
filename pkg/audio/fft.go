package audio

import (
	"math/cmplx"
	"time"

	"github.com/chewxy/math32"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	lowCutoffHz    = 50
	highCutoffHz   = 10000
	bassCutoffHz   = 100.0
	noiseReduction = 0.77
	gravityStep    = 0.028

	// FrameRate is the fixed animation rate of the visualizer.
	FrameRate = 60
)

// FrameInterval is the spacing of visualizer animation ticks.
const FrameInterval = time.Second / FrameRate

// Engine computes the bar spectrum from interleaved f32 samples. Bass
// bars use a window twice the base FFT size for frequency resolution;
// everything above the bass cutoff uses the base size. Output is
// stabilized by peak-hold gravity, a noise-reduction memory term, and
// an adaptive sensitivity that backs off whenever a bar overshoots.
type Engine struct {
	channels int
	bars     int

	size     int
	bassSize int
	// Usable spectrum lengths for the real-input FFTs.
	outLen     int
	bassOutLen int

	hann     []float64
	hannBass []float64
	fftIn    []float64
	bassIn   []float64

	// Per-bar inclusive [start, end] bin ranges.
	cutoffs       [][2]int
	bassCutoffBar int
	eq            []float32

	// Most recent samples, newest first, interleaved.
	input   []float32
	memory  []float32
	peak    []float32
	fall    []float32
	prevOut []float32

	sens          float32
	sensInit      bool
	lastSampleLen int
}

// fftSizeFor picks the base FFT size so the window spans a roughly
// constant time, doubling once per octave above 8125 Hz.
func fftSizeFor(sampleRate uint32) int {
	size := 512
	for _, threshold := range []uint32{8125, 16250, 32500, 75000, 150000, 300000} {
		if sampleRate > threshold {
			size *= 2
		}
	}
	return size
}

// hannWindow returns symmetric Hann coefficients of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}

// NewEngine sizes the FFTs and bar binning for a negotiated format and
// bar count.
func NewEngine(sampleRate uint32, channels, bars int) *Engine {
	if channels < 1 {
		channels = 1
	}
	size := fftSizeFor(sampleRate)
	bassSize := size * 2

	e := &Engine{
		channels:   channels,
		bars:       bars,
		size:       size,
		bassSize:   bassSize,
		outLen:     size/2 + 1,
		bassOutLen: bassSize/2 + 1,
		hann:       hannWindow(size),
		hannBass:   hannWindow(bassSize),
		fftIn:      make([]float64, size),
		bassIn:     make([]float64, bassSize),
		cutoffs:    make([][2]int, bars),
		eq:         make([]float32, bars),
		input:      make([]float32, bassSize*channels),
		memory:     make([]float32, bars*channels),
		peak:       make([]float32, bars*channels),
		fall:       make([]float32, bars*channels),
		prevOut:    make([]float32, bars*channels),
		sens:       1.0,
		sensInit:   true,
	}
	e.planBinning(float32(sampleRate))
	return e
}

// planBinning spaces bar cutoff frequencies logarithmically between the
// low and high cutoffs and maps each bar to a bin range in whichever
// spectrum serves it.
func (e *Engine) planBinning(sampleRate float32) {
	bars := float32(e.bars)
	freqConstant := math32.Log10(float32(lowCutoffHz)/float32(highCutoffHz)) /
		(1.0/(bars+1.0) - 1.0)

	freqs := make([]float32, e.bars+1)
	for n := range freqs {
		coeff := -freqConstant + (float32(n)+1.0)/(bars+1.0)*freqConstant
		freqs[n] = float32(highCutoffHz) * math32.Pow(10, coeff)
	}

	lower := make([]int, e.bars+1)
	for n, freq := range freqs {
		if freq < bassCutoffHz {
			lower[n] = int(freq / (sampleRate / float32(e.bassSize)))
			if n < e.bars {
				e.bassCutoffBar = n + 1
			}
		} else {
			lower[n] = int(freq / (sampleRate / float32(e.size)))
		}
	}

	for n := 0; n < e.bars; n++ {
		start := max(lower[n], 3)
		end := lower[n+1]
		if start >= end {
			end = start + 1
		}
		maxIndex := e.outLen
		norm := math32.Log2(float32(e.size))
		if n < e.bassCutoffBar {
			maxIndex = e.bassOutLen
			norm = math32.Log2(float32(e.bassSize))
		}
		e.cutoffs[n] = [2]int{clampInt(start, 0, maxIndex), clampInt(end-1, 0, maxIndex)}

		width := float32(e.cutoffs[n][1] - e.cutoffs[n][0] + 1)
		e.eq[n] = freqs[n+1] * math32.Exp2(-28) / norm / math32.Max(width, 1.0)
	}
}

// InitBars allocates a zeroed bar vector of the engine's output shape.
func (e *Engine) InitBars() []float32 {
	return make([]float32, e.bars*e.channels)
}

// Bars is the number of bars per channel.
func (e *Engine) Bars() int { return e.bars }

// Channels is the interleaved channel count.
func (e *Engine) Channels() int { return e.channels }

// Process runs one visualizer frame. newSample carries fresh interleaved
// samples; nil is a silence tick, which ages the ring by the last block
// length with zeros. Clamped bar values land in out, which must have
// length bars*channels.
func (e *Engine) Process(newSample []float32, out []float32) {
	silence := e.ingest(newSample)

	overshoot := false
	for ch := 0; ch < e.channels; ch++ {
		for i := range e.bassIn {
			e.bassIn[i] = float64(e.input[i*e.channels+ch]) * e.hannBass[i]
		}
		for i := range e.fftIn {
			e.fftIn[i] = float64(e.input[i*e.channels+ch]) * e.hann[i]
		}
		bassSpectrum := fft.FFTReal(e.bassIn)
		spectrum := fft.FFTReal(e.fftIn)

		for n := 0; n < e.bars; n++ {
			val := e.barMagnitude(n, spectrum, bassSpectrum) * e.sens

			idx := n + ch*e.bars
			if val < e.prevOut[idx] {
				val = e.peak[idx] * (1.0 - e.fall[idx]*e.fall[idx])
				if val < 0 {
					val = 0
				}
				e.fall[idx] += gravityStep
			} else {
				e.peak[idx] = val
				e.fall[idx] = 0
			}
			e.prevOut[idx] = val

			val += e.memory[idx] * noiseReduction
			e.memory[idx] = val

			if val > 1.0 {
				overshoot = true
			}
			out[idx] = clamp01(val)
		}
	}

	if overshoot {
		e.sens *= 0.98
		e.sensInit = false
	} else if !silence {
		e.sens *= 1.001
		if e.sensInit {
			e.sens *= 1.1
		}
	}
}

// ingest shifts the sample ring and writes the new block, newest sample
// first. It reports whether the frame was silent.
func (e *Engine) ingest(newSample []float32) bool {
	bufLen := len(e.input)
	if newSample == nil {
		shift := min(e.lastSampleLen, bufLen)
		if bufLen > shift {
			copy(e.input[shift:], e.input[:bufLen-shift])
		}
		for i := 0; i < shift; i++ {
			e.input[i] = 0
		}
		return true
	}

	e.lastSampleLen = len(newSample)
	if len(newSample) > 0 {
		shift := min(len(newSample), bufLen)
		if bufLen > shift {
			copy(e.input[shift:], e.input[:bufLen-shift])
		}
		for i := 0; i < shift; i++ {
			e.input[i] = newSample[len(newSample)-1-i]
		}
	}
	for _, s := range newSample {
		if s != 0 {
			return false
		}
	}
	return true
}

// barMagnitude sums spectrum magnitudes over the bar's bin range in the
// spectrum serving it and applies the equalization weight.
func (e *Engine) barMagnitude(n int, spectrum, bassSpectrum []complex128) float32 {
	start, end := e.cutoffs[n][0], e.cutoffs[n][1]
	var sum float64
	if n < e.bassCutoffBar {
		if start <= end && end < e.bassOutLen {
			for i := start; i <= end; i++ {
				sum += cmplx.Abs(bassSpectrum[i])
			}
		}
	} else if start <= end && end < e.outLen {
		for i := start; i <= end; i++ {
			sum += cmplx.Abs(spectrum[i])
		}
	}
	return float32(sum) * e.eq[n]
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
