package config

import "fmt"

// Preset names.
const (
	PresetStreaming = "streaming" // live visualization defaults
	PresetNarrow    = "narrow"    // low-bandwidth capture (16 kHz)
)

// Preset returns a fully-populated configuration for a named preset. An
// empty name selects the streaming preset.
func Preset(name string) (*Config, error) {
	switch name {
	case "", PresetStreaming:
		return streamingPreset(), nil
	case PresetNarrow:
		cfg := streamingPreset()
		cfg.Window.SampleRate = 16000
		cfg.Window.FFTSize = 1024
		cfg.Window.HopSize = 128
		cfg.Window.MaxFreq = 8000
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown preset '%s'", name)
	}
}

// streamingPreset matches the capture pipeline the classifier was trained
// against: 3 s classification windows with 1 s hop, 128x128 log-mel
// tensors at 22050 Hz.
func streamingPreset() *Config {
	return &Config{
		Window: WindowConfig{
			SampleRate: 44100,
			FFTSize:    2048,
			HopSize:    256,
			NumBands:   64,
			MinFreq:    50,
			MaxFreq:    8000,
		},
		Session: SessionConfig{
			MaxColumns:        10000,
			MaxHistorySeconds: 1800,
		},
		Classification: ClassificationConfig{
			Policy:         PolicySliding,
			WindowSeconds:  3.0,
			HopSeconds:     1.0,
			MinSegmentSecs: 1.0,
			TensorBands:    128,
			TensorFrames:   128,
			Workers:        4,
			PreEmphasis:    0.97,
			ClassifierRate: 22050,
			TensorFFTSize:  2048,
			TensorHopSize:  512,
			TensorMinFreq:  50,
			TensorFloorDB:  80,
		},
		Events: EventConfig{
			MinDurationMs:       250,
			ConfidenceThreshold: 0.30,
			MarginThreshold:     0.05,
			BenignOverrideProb:  0.75,
			BenignOverrideOther: 0.40,
			SeverityHigh:        0.80,
			SeverityMedium:      0.60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
