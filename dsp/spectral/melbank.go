package spectral

import (
	"fmt"
	"math"
)

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelBank is a precomputed triangular mel filter bank. Each filter spans
// overlapping FFT bins; applying the bank projects a power spectrum of
// fftSize/2+1 bins onto numBands perceptually-scaled bands.
type MelBank struct {
	numBands   int
	fftSize    int
	sampleRate int
	filters    [][]float64
	centersHz  []float64
}

// NewMelBank builds a triangular filter bank with numBands filters spanning
// [minFreq, maxFreq] Hz for the given FFT size and sample rate.
func NewMelBank(numBands, fftSize, sampleRate int, minFreq, maxFreq float64) (*MelBank, error) {
	if numBands <= 0 {
		return nil, fmt.Errorf("numBands must be positive, got %d", numBands)
	}
	if fftSize <= 0 {
		return nil, fmt.Errorf("fftSize must be positive, got %d", fftSize)
	}
	if minFreq < 0 || maxFreq <= minFreq {
		return nil, fmt.Errorf("invalid frequency range [%f, %f]", minFreq, maxFreq)
	}
	nyquist := float64(sampleRate) / 2.0
	if maxFreq > nyquist {
		return nil, fmt.Errorf("maxFreq %f exceeds Nyquist %f", maxFreq, nyquist)
	}

	lowMel := HzToMel(minFreq)
	highMel := HzToMel(maxFreq)

	// Equally spaced points on the mel scale, converted back to Hz and
	// then to FFT bin indices.
	melPoints := make([]float64, numBands+2)
	melStep := (highMel - lowMel) / float64(numBands+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}

	hzPoints := make([]float64, len(melPoints))
	for i, mel := range melPoints {
		hzPoints[i] = MelToHz(mel)
	}

	binPoints := make([]int, len(hzPoints))
	for i, hz := range hzPoints {
		binPoints[i] = int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(binPoints[i], fftSize/2)
	}

	numBins := fftSize/2 + 1
	filters := make([][]float64, numBands)
	for i := range filters {
		filters[i] = make([]float64, numBins)
	}

	centers := make([]float64, numBands)

	for m := 1; m <= numBands; m++ {
		leftBin := binPoints[m-1]
		centerBin := binPoints[m]
		rightBin := binPoints[m+1]

		centers[m-1] = hzPoints[m]

		// Rising edge
		for k := leftBin; k < centerBin && k < numBins; k++ {
			if centerBin != leftBin {
				filters[m-1][k] = float64(k-leftBin) / float64(centerBin-leftBin)
			}
		}

		// Falling edge
		for k := centerBin; k < rightBin && k < numBins; k++ {
			if rightBin != centerBin {
				filters[m-1][k] = float64(rightBin-k) / float64(rightBin-centerBin)
			}
		}
	}

	return &MelBank{
		numBands:   numBands,
		fftSize:    fftSize,
		sampleRate: sampleRate,
		filters:    filters,
		centersHz:  centers,
	}, nil
}

// Apply projects a power spectrum (fftSize/2+1 bins) onto the mel bands.
func (mb *MelBank) Apply(powerSpectrum []float64) []float64 {
	melSpectrum := make([]float64, mb.numBands)

	for i, filter := range mb.filters {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// NumBands returns the number of mel bands.
func (mb *MelBank) NumBands() int {
	return mb.numBands
}

// CenterFreq returns the center frequency in Hz of band i.
func (mb *MelBank) CenterFreq(i int) float64 {
	if i < 0 || i >= len(mb.centersHz) {
		return 0
	}
	return mb.centersHz[i]
}

// NearestBand returns the index of the band whose center frequency is
// closest to hz.
func (mb *MelBank) NearestBand(hz float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range mb.centersHz {
		if d := math.Abs(c - hz); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
