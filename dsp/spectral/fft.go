// Package spectral provides FFT, power spectrum and mel filter bank
// computation for the feature extraction pipeline.
package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real-valued signal using mjibson/go-dsp.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// MagnitudeSpectrum computes the magnitude of the positive-frequency half
// of the spectrum (DC through Nyquist, len(x)/2+1 bins).
func (f *FFT) MagnitudeSpectrum(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(x)
	freqBins := len(x)/2 + 1

	magnitude := make([]float64, freqBins)
	for i := 0; i < freqBins; i++ {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}

	return magnitude
}
