// Package config defines the tunable surface of the disfluency core:
// streaming window parameters, classification scheduling, and event
// post-processing thresholds. Values are adjustable without recompilation
// through named presets or a YAML file layered over a preset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Window         WindowConfig         `yaml:"window"`
	Session        SessionConfig        `yaml:"session"`
	Classification ClassificationConfig `yaml:"classification"`
	Events         EventConfig          `yaml:"events"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// WindowConfig contains the spectral analysis parameters for one session.
// Immutable once a session is created.
type WindowConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	FFTSize    int     `yaml:"fft_size"` // must be a power of two
	HopSize    int     `yaml:"hop_size"` // must be < fft_size
	NumBands   int     `yaml:"num_bands"`
	MinFreq    float64 `yaml:"min_freq"` // Hz
	MaxFreq    float64 `yaml:"max_freq"` // Hz
}

// SessionConfig bounds the memory of a recording session.
type SessionConfig struct {
	MaxColumns        int `yaml:"max_columns"`         // display history cap, oldest evicted
	MaxHistorySeconds int `yaml:"max_history_seconds"` // full sample history hard cap
}

// Segment scheduling policies.
const (
	PolicySliding  = "sliding"  // overlapping windows, finer event boundaries
	PolicyDisjoint = "disjoint" // back-to-back windows, one pass per sample
)

// ClassificationConfig contains post-recording segmentation parameters.
type ClassificationConfig struct {
	Policy          string  `yaml:"policy"`           // PolicySliding or PolicyDisjoint
	WindowSeconds   float64 `yaml:"window_seconds"`   // segment duration
	HopSeconds      float64 `yaml:"hop_seconds"`      // sliding policy only
	MinSegmentSecs  float64 `yaml:"min_segment_secs"` // shorter segments are padded
	TensorBands     int     `yaml:"tensor_bands"`     // classifier input height
	TensorFrames    int     `yaml:"tensor_frames"`    // classifier input width
	Workers         int     `yaml:"workers"`
	PreEmphasis     float64 `yaml:"pre_emphasis"`
	ClassifierRate  int     `yaml:"classifier_rate"`  // sample rate of the tensor pipeline
	TensorFFTSize   int     `yaml:"tensor_fft_size"`
	TensorHopSize   int     `yaml:"tensor_hop_size"`
	TensorMinFreq   float64 `yaml:"tensor_min_freq"`
	TensorFloorDB   float64 `yaml:"tensor_floor_db"` // padding floor, dB below reference
}

// EventConfig contains the hysteresis thresholds of the event
// post-processor. The margin and override values are tuned heuristics;
// they are carried as configuration rather than constants.
type EventConfig struct {
	MinDurationMs       int     `yaml:"min_duration_ms"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MarginThreshold     float64 `yaml:"margin_threshold"`
	BenignOverrideProb  float64 `yaml:"benign_override_prob"`  // benign prob above this...
	BenignOverrideOther float64 `yaml:"benign_override_other"` // ...and non-benign below this => benign
	SeverityHigh        float64 `yaml:"severity_high"`         // confidence >= this => high
	SeverityMedium      float64 `yaml:"severity_medium"`       // confidence >= this => medium
}

// MinEventDuration returns the minimum event length as a time.Duration.
func (e *EventConfig) MinEventDuration() time.Duration {
	return time.Duration(e.MinDurationMs) * time.Millisecond
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads a YAML config file layered over the named preset. An empty
// preset name means "streaming"; an empty path returns the preset as-is.
func Load(path, preset string) (*Config, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs validation of the complete configuration
func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("window config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Classification.Validate(); err != nil {
		return fmt.Errorf("classification config: %w", err)
	}

	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events config: %w", err)
	}

	return nil
}

// Validate validates window configuration
func (w *WindowConfig) Validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", w.SampleRate)
	}

	if w.FFTSize <= 0 || (w.FFTSize&(w.FFTSize-1)) != 0 {
		return fmt.Errorf("fft_size must be a power of two, got %d", w.FFTSize)
	}

	if w.HopSize <= 0 || w.HopSize >= w.FFTSize {
		return fmt.Errorf("hop_size must be in (0, fft_size), got %d", w.HopSize)
	}

	if w.NumBands <= 0 {
		return fmt.Errorf("num_bands must be positive, got %d", w.NumBands)
	}

	if w.MinFreq < 0 || w.MaxFreq <= w.MinFreq {
		return fmt.Errorf("invalid frequency range [%f, %f]", w.MinFreq, w.MaxFreq)
	}

	if w.MaxFreq > float64(w.SampleRate)/2 {
		return fmt.Errorf("max_freq %f exceeds Nyquist for %d Hz", w.MaxFreq, w.SampleRate)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.MaxColumns < 1 {
		return fmt.Errorf("max_columns must be at least 1, got %d", s.MaxColumns)
	}

	if s.MaxHistorySeconds < 1 {
		return fmt.Errorf("max_history_seconds must be at least 1, got %d", s.MaxHistorySeconds)
	}

	return nil
}

// Validate validates classification configuration
func (c *ClassificationConfig) Validate() error {
	if c.Policy != PolicySliding && c.Policy != PolicyDisjoint {
		return fmt.Errorf("policy must be '%s' or '%s', got '%s'", PolicySliding, PolicyDisjoint, c.Policy)
	}

	if c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", c.WindowSeconds)
	}

	if c.Policy == PolicySliding && (c.HopSeconds <= 0 || c.HopSeconds > c.WindowSeconds) {
		return fmt.Errorf("hop_seconds must be in (0, window_seconds], got %f", c.HopSeconds)
	}

	if c.MinSegmentSecs <= 0 || c.MinSegmentSecs > c.WindowSeconds {
		return fmt.Errorf("min_segment_secs must be in (0, window_seconds], got %f", c.MinSegmentSecs)
	}

	if c.TensorBands <= 0 || c.TensorFrames <= 0 {
		return fmt.Errorf("tensor shape must be positive, got %dx%d", c.TensorBands, c.TensorFrames)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.PreEmphasis < 0 || c.PreEmphasis >= 1 {
		return fmt.Errorf("pre_emphasis must be in [0, 1), got %f", c.PreEmphasis)
	}

	if c.ClassifierRate <= 0 {
		return fmt.Errorf("classifier_rate must be positive, got %d", c.ClassifierRate)
	}

	if c.TensorFFTSize <= 0 || (c.TensorFFTSize&(c.TensorFFTSize-1)) != 0 {
		return fmt.Errorf("tensor_fft_size must be a power of two, got %d", c.TensorFFTSize)
	}

	if c.TensorHopSize <= 0 || c.TensorHopSize >= c.TensorFFTSize {
		return fmt.Errorf("tensor_hop_size must be in (0, tensor_fft_size), got %d", c.TensorHopSize)
	}

	if c.TensorFloorDB <= 0 {
		return fmt.Errorf("tensor_floor_db must be positive, got %f", c.TensorFloorDB)
	}

	return nil
}

// Validate validates event post-processing configuration
func (e *EventConfig) Validate() error {
	if e.MinDurationMs <= 0 {
		return fmt.Errorf("min_duration_ms must be positive, got %d", e.MinDurationMs)
	}

	for name, v := range map[string]float64{
		"confidence_threshold":  e.ConfidenceThreshold,
		"margin_threshold":      e.MarginThreshold,
		"benign_override_prob":  e.BenignOverrideProb,
		"benign_override_other": e.BenignOverrideOther,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, v)
		}
	}

	if e.SeverityHigh <= e.SeverityMedium {
		return fmt.Errorf("severity_high (%f) must exceed severity_medium (%f)",
			e.SeverityHigh, e.SeverityMedium)
	}

	return nil
}

// WindowDuration returns the classification window as a time.Duration.
func (c *ClassificationConfig) WindowDuration() time.Duration {
	return time.Duration(c.WindowSeconds * float64(time.Second))
}

// HopDuration returns the classification hop as a time.Duration.
func (c *ClassificationConfig) HopDuration() time.Duration {
	return time.Duration(c.HopSeconds * float64(time.Second))
}

// MinSegmentDuration returns the minimum segment length as a time.Duration.
func (c *ClassificationConfig) MinSegmentDuration() time.Duration {
	return time.Duration(c.MinSegmentSecs * float64(time.Second))
}
