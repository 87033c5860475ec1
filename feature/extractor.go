// Package feature turns audio windows into spectrogram columns for the
// live display and into fixed-shape log-mel tensors for the classifier.
package feature

import (
	"fmt"

	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/dsp/common"
	"github.com/clearspeech/disfluency/dsp/spectral"
	"github.com/clearspeech/disfluency/dsp/window"
)

// displayTopDB is the dynamic range of the display normalization: band
// energies more than this far below the window peak render as 0.
const displayTopDB = 80.0

// Extractor converts one FFT-sized window of samples into one spectrogram
// column. It is pure given (window, WindowConfig): identical inputs yield
// identical columns.
type Extractor struct {
	cfg  config.WindowConfig
	hann *window.Hann
	fft  *spectral.FFT
	bank *spectral.MelBank
}

// NewExtractor precomputes the Hann window and mel filter bank for the
// given configuration. The FFT size must be a power of two.
func NewExtractor(cfg config.WindowConfig) (*Extractor, error) {
	if !common.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("fft size must be a power of two, got %d", cfg.FFTSize)
	}

	if cfg.HopSize <= 0 || cfg.HopSize >= cfg.FFTSize {
		return nil, fmt.Errorf("hop size must be in (0, fft size), got %d", cfg.HopSize)
	}

	bank, err := spectral.NewMelBank(cfg.NumBands, cfg.FFTSize, cfg.SampleRate, cfg.MinFreq, cfg.MaxFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to build mel filter bank: %w", err)
	}

	return &Extractor{
		cfg:  cfg,
		hann: window.NewPeriodicHann(cfg.FFTSize),
		fft:  spectral.NewFFT(),
		bank: bank,
	}, nil
}

// Column computes one spectrogram column from exactly FFTSize samples:
// periodic Hann window, real FFT magnitude, mel projection, dB compression
// and normalization into [0, 1]. The input slice is not modified.
func (e *Extractor) Column(samples []float64) ([]float64, error) {
	if len(samples) != e.cfg.FFTSize {
		return nil, fmt.Errorf("expected %d samples, got %d", e.cfg.FFTSize, len(samples))
	}

	windowed := e.hann.Apply(samples)
	magnitude := e.fft.MagnitudeSpectrum(windowed)
	power := spectral.PowerSpectrum(magnitude)
	melPower := e.bank.Apply(power)
	db := spectral.PowerToDB(melPower, displayTopDB)

	column := make([]float64, len(db))
	for i, v := range db {
		column[i] = common.Clamp((v+displayTopDB)/displayTopDB, 0, 1)
	}

	return column, nil
}

// NumBands returns the column height.
func (e *Extractor) NumBands() int {
	return e.bank.NumBands()
}

// NearestBand returns the mel band whose center frequency is closest to hz.
func (e *Extractor) NearestBand(hz float64) int {
	return e.bank.NearestBand(hz)
}
