package decode

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestBytesToFloat64(t *testing.T) {
	values := []float64{0, 0.5, -0.5, 1, -1}
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}

	samples := bytesToFloat64(data)
	if len(samples) != len(values) {
		t.Fatalf("Expected %d samples, got %d", len(values), len(samples))
	}

	for i, v := range values {
		if samples[i] != v {
			t.Errorf("Sample %d: expected %f, got %f", i, v, samples[i])
		}
	}
}

func TestBytesToFloat64DropsPartialSample(t *testing.T) {
	data := make([]byte, 19) // two full samples plus three stray bytes
	if got := len(bytesToFloat64(data)); got != 2 {
		t.Errorf("Expected 2 samples from 19 bytes, got %d", got)
	}
}

func TestEncodePCM16RoundTrip(t *testing.T) {
	samples := []float64{0, 0.25, -0.25, 0.99, -0.99}
	encoded := EncodePCM16(samples)

	if len(encoded) != len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*2, len(encoded))
	}

	for i, s := range samples {
		v := int16(binary.LittleEndian.Uint16(encoded[i*2:]))
		back := float64(v) / 32767
		if math.Abs(back-s) > 1.0/32767 {
			t.Errorf("Sample %d: expected ~%f, got %f", i, s, back)
		}
	}
}

func TestEncodePCM16Clips(t *testing.T) {
	encoded := EncodePCM16([]float64{2.0, -2.0})

	high := int16(binary.LittleEndian.Uint16(encoded[0:]))
	low := int16(binary.LittleEndian.Uint16(encoded[2:]))

	if high != 32767 {
		t.Errorf("Expected positive clip at 32767, got %d", high)
	}

	if low != -32767 {
		t.Errorf("Expected negative clip at -32767, got %d", low)
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	d := NewDecoder(&DecoderConfig{TargetSampleRate: 22050, FFmpegPath: "ffmpeg"})

	args := d.buildFFmpegArgs("input.wav")

	found := false
	for i, a := range args {
		if a == "-ar" && i+1 < len(args) && args[i+1] == "22050" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected target rate 22050 in ffmpeg args, got %v", args)
	}
}
