package feature

import (
	"math"
	"testing"

	"github.com/clearspeech/disfluency/config"
)

func testClassificationConfig() config.ClassificationConfig {
	return config.ClassificationConfig{
		Policy:         "sliding",
		WindowSeconds:  3.0,
		HopSeconds:     1.0,
		MinSegmentSecs: 1.0,
		TensorBands:    128,
		TensorFrames:   128,
		Workers:        2,
		PreEmphasis:    0.97,
		ClassifierRate: 22050,
		TensorFFTSize:  2048,
		TensorHopSize:  512,
		TensorMinFreq:  50,
		TensorFloorDB:  80,
	}
}

func TestNewTensorBuilderRejectsNonPowerOfTwo(t *testing.T) {
	cfg := testClassificationConfig()
	cfg.TensorFFTSize = 1000
	if _, err := NewTensorBuilder(cfg); err == nil {
		t.Error("Expected error for non-power-of-two tensor FFT size")
	}
}

func TestBuildRejectsShortSegment(t *testing.T) {
	b, err := NewTensorBuilder(testClassificationConfig())
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	// 100 samples at the classifier rate is far below one FFT frame.
	if _, err := b.Build(make([]float64, 100), 22050); err == nil {
		t.Error("Expected error for segment shorter than one frame")
	}
}

func TestBuildShape(t *testing.T) {
	b, err := NewTensorBuilder(testClassificationConfig())
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	// 3 seconds at the classifier rate.
	samples := make([]float64, 3*22050)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 22050)
	}

	tensor, err := b.Build(samples, 22050)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if tensor.Bands != 128 || tensor.Frames != 128 {
		t.Errorf("Expected 128x128 tensor, got %dx%d", tensor.Bands, tensor.Frames)
	}

	if len(tensor.Data) != 128*128 {
		t.Errorf("Expected %d values, got %d", 128*128, len(tensor.Data))
	}

	// dB relative to segment max: everything in [-80, 0].
	for i, v := range tensor.Data {
		if v < -80 || v > 0 {
			t.Fatalf("Value %d out of range [-80, 0]: %f", i, v)
		}
	}
}

func TestBuildPadsShortFrameAxis(t *testing.T) {
	b, err := NewTensorBuilder(testClassificationConfig())
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	// One second yields ~40 natural frames, well short of 128.
	samples := make([]float64, 22050)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 22050)
	}

	tensor, err := b.Build(samples, 22050)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The trailing frames must carry the silence floor.
	for band := 0; band < tensor.Bands; band++ {
		if v := tensor.At(band, 127); v != -80 {
			t.Fatalf("Expected floor padding -80 in band %d, got %f", band, v)
		}
	}
}

func TestBuildResamplesSource(t *testing.T) {
	b, err := NewTensorBuilder(testClassificationConfig())
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	// 1 second at 44100 resamples to 1 second at 22050.
	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}

	tensor, err := b.Build(samples, 44100)
	if err != nil {
		t.Fatalf("Build with resampling failed: %v", err)
	}

	if tensor.Bands != 128 || tensor.Frames != 128 {
		t.Errorf("Expected 128x128 tensor, got %dx%d", tensor.Bands, tensor.Frames)
	}
}

func TestPreEmphasis(t *testing.T) {
	samples := []float64{1, 1, 1, 1}
	out := PreEmphasis(samples, 0.97)

	if out[0] != 1 {
		t.Errorf("First sample must pass through, got %f", out[0])
	}

	for i := 1; i < len(out); i++ {
		expected := 1 - 0.97
		if math.Abs(out[i]-expected) > 1e-12 {
			t.Errorf("Sample %d: expected %f, got %f", i, expected, out[i])
		}
	}

	if samples[1] != 1 {
		t.Error("PreEmphasis must not mutate its input")
	}
}

func TestResampleLength(t *testing.T) {
	samples := make([]float64, 44100)
	out := Resample(samples, 44100, 22050)

	if len(out) != 22050 {
		t.Errorf("Expected 22050 output samples, got %d", len(out))
	}

	same := Resample(samples, 44100, 44100)
	if len(same) != len(samples) {
		t.Errorf("Equal rates should pass through, got %d samples", len(same))
	}
}

func TestResampleInterpolates(t *testing.T) {
	// A linear ramp stays a linear ramp under linear interpolation.
	samples := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	out := Resample(samples, 8000, 4000)

	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Errorf("Downsampled ramp not increasing at %d: %f <= %f", i, out[i], out[i-1])
		}
	}
}
