package feature

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/dsp/common"
	"github.com/clearspeech/disfluency/dsp/spectral"
	"github.com/clearspeech/disfluency/dsp/window"
)

// Tensor is a fixed-shape log-mel spectrogram, the classifier's input.
// Values are dB relative to the segment maximum, in [-floor, 0]. Data is
// band-major: Data[band*Frames+frame].
type Tensor struct {
	Bands  int
	Frames int
	Data   []float64
}

// At returns the value at (band, frame).
func (t *Tensor) At(band, frame int) float64 {
	return t.Data[band*t.Frames+frame]
}

// TensorBuilder produces classifier input tensors from raw segments. The
// pipeline mirrors the training-time preprocessing: resample to the
// classifier rate, pre-emphasis, log-mel spectrogram, then truncate or
// floor-pad the frame axis to the fixed shape.
type TensorBuilder struct {
	cfg  config.ClassificationConfig
	hann *window.Hann
	fft  *spectral.FFT
	bank *spectral.MelBank
}

// NewTensorBuilder validates the tensor pipeline configuration and
// precomputes its window and filter bank.
func NewTensorBuilder(cfg config.ClassificationConfig) (*TensorBuilder, error) {
	if !common.IsPowerOfTwo(cfg.TensorFFTSize) {
		return nil, fmt.Errorf("tensor fft size must be a power of two, got %d", cfg.TensorFFTSize)
	}

	maxFreq := float64(cfg.ClassifierRate) / 2.0
	bank, err := spectral.NewMelBank(cfg.TensorBands, cfg.TensorFFTSize, cfg.ClassifierRate, cfg.TensorMinFreq, maxFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to build mel filter bank: %w", err)
	}

	return &TensorBuilder{
		cfg:  cfg,
		hann: window.NewPeriodicHann(cfg.TensorFFTSize),
		fft:  spectral.NewFFT(),
		bank: bank,
	}, nil
}

// Build computes the log-mel tensor for one segment of samples recorded at
// sourceRate. Segments shorter than one FFT frame are rejected.
func (b *TensorBuilder) Build(samples []float64, sourceRate int) (*Tensor, error) {
	if sourceRate != b.cfg.ClassifierRate {
		samples = Resample(samples, sourceRate, b.cfg.ClassifierRate)
	}

	if b.cfg.PreEmphasis > 0 {
		samples = PreEmphasis(samples, b.cfg.PreEmphasis)
	}

	fftSize := b.cfg.TensorFFTSize
	hopSize := b.cfg.TensorHopSize

	if len(samples) < fftSize {
		return nil, fmt.Errorf("segment too short: %d samples, need at least %d", len(samples), fftSize)
	}

	numFrames := (len(samples)-fftSize)/hopSize + 1

	// Mel power per natural frame, before dB compression. The reference
	// maximum is taken over the whole segment so frames stay comparable.
	melFrames := make([][]float64, numFrames)
	frameBuffer := make([]float64, fftSize)
	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		copy(frameBuffer, samples[start:start+fftSize])
		if err := b.hann.ApplyInPlace(frameBuffer); err != nil {
			return nil, err
		}
		magnitude := b.fft.MagnitudeSpectrum(frameBuffer)
		melFrames[i] = b.bank.Apply(spectral.PowerSpectrum(magnitude))
	}

	ref := 0.0
	for _, frame := range melFrames {
		if m := floats.Max(frame); m > ref {
			ref = m
		}
	}
	if ref <= 0 {
		ref = 1e-10
	}

	floor := b.cfg.TensorFloorDB
	tensor := &Tensor{
		Bands:  b.cfg.TensorBands,
		Frames: b.cfg.TensorFrames,
		Data:   make([]float64, b.cfg.TensorBands*b.cfg.TensorFrames),
	}

	// Pad value for missing frames.
	for i := range tensor.Data {
		tensor.Data[i] = -floor
	}

	keep := min(numFrames, b.cfg.TensorFrames)
	for f := 0; f < keep; f++ {
		db := spectral.PowerToDBRef(melFrames[f], ref, floor)
		for band := 0; band < b.cfg.TensorBands; band++ {
			tensor.Data[band*tensor.Frames+f] = db[band]
		}
	}

	return tensor, nil
}

// PreEmphasis applies the first-order high-pass y[n] = x[n] - a*x[n-1],
// the standard speech preprocessing step (a typically 0.95-0.97).
func PreEmphasis(samples []float64, coefficient float64) []float64 {
	if len(samples) == 0 {
		return samples
	}

	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - coefficient*samples[i-1]
	}

	return out
}

// Resample converts samples from one rate to another by linear
// interpolation. Adequate for downsampling speech ahead of a mel
// projection that discards energy above the band range anyway.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return []float64{}
	}

	out := make([]float64, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		t := pos - float64(left)
		out[i] = samples[left] + t*(samples[left+1]-samples[left])
	}

	return out
}
