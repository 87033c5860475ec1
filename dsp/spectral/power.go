package spectral

import (
	"math"
)

// PowerSpectrum computes power spectral density from a magnitude spectrum.
func PowerSpectrum(magnitudeSpectrum []float64) []float64 {
	if len(magnitudeSpectrum) == 0 {
		return []float64{}
	}

	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}

	return power
}

// PowerToDB converts a power spectrum to decibels relative to its maximum
// value, clipped at -topDB. This matches the reference-max dB compression
// commonly applied before CNN input (floor value -topDB for silence).
func PowerToDB(power []float64, topDB float64) []float64 {
	maxPower := 0.0
	for _, p := range power {
		if p > maxPower {
			maxPower = p
		}
	}
	return PowerToDBRef(power, maxPower, topDB)
}

// PowerToDBRef converts a power spectrum to decibels relative to an
// explicit reference, clipped at -topDB. Used when several frames must
// share one reference (e.g. a whole classifier segment).
func PowerToDBRef(power []float64, ref, topDB float64) []float64 {
	if len(power) == 0 {
		return []float64{}
	}

	// All-zero input maps uniformly to the floor.
	if ref <= 0 {
		ref = 1e-10
	}

	db := make([]float64, len(power))
	for i, p := range power {
		if p < 1e-10 {
			p = 1e-10
		}
		db[i] = 10.0 * math.Log10(p/ref)
		if db[i] < -topDB {
			db[i] = -topDB
		}
	}

	return db
}
