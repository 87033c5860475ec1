// Package decode turns audio files into normalized mono PCM suitable for
// the streaming pipeline. Decoding shells out to ffmpeg so any container
// or codec the system ffmpeg understands can be analyzed.
package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"time"

	"github.com/clearspeech/disfluency/logging"
)

// AudioData represents one decoded recording.
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// DecoderConfig holds decoder configuration.
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	FFmpegPath       string        `json:"ffmpeg_path"`
	Timeout          time.Duration `json:"timeout"`
}

// DefaultDecoderConfig returns settings matching the capture pipeline:
// mono 44.1 kHz.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 44100,
		FFmpegPath:       "ffmpeg",
		Timeout:          60 * time.Second,
	}
}

// Decoder decodes audio files via ffmpeg.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a decoder with the given config, or defaults if nil.
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}

	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component":   "decoder",
			"sample_rate": config.TargetSampleRate,
		}),
	}
}

// DecodeFile decodes an audio file to mono float64 PCM at the target
// sample rate.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	if err := d.checkFFmpegAvailability(); err != nil {
		return nil, err
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := d.buildFFmpegArgs(filename)
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed for %s: %w", filename, err)
	}

	pcm := bytesToFloat64(output)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio data decoded from %s", filename)
	}

	duration := time.Duration(float64(len(pcm)) / float64(d.config.TargetSampleRate) * float64(time.Second))
	d.logger.Debug("decoded audio file", logging.Fields{
		"file":       filename,
		"samples":    len(pcm),
		"duration_s": duration.Seconds(),
	})

	return &AudioData{
		PCM:        pcm,
		SampleRate: d.config.TargetSampleRate,
		Channels:   1,
		Duration:   duration,
	}, nil
}

// buildFFmpegArgs constructs the decode command: any input, mono f64le on
// stdout at the target rate.
func (d *Decoder) buildFFmpegArgs(filename string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", filename,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", d.config.TargetSampleRate),
		"-",
	}
}

func (d *Decoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at '%s': %w", d.config.FFmpegPath, err)
	}
	return nil
}

// bytesToFloat64 converts little-endian f64le PCM bytes to samples. A
// trailing partial sample is dropped.
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := 0; i < sampleCount; i++ {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// EncodePCM16 converts float samples in [-1, 1] to interleaved
// little-endian 16-bit PCM, the streaming ingest format. Values outside
// the range are clipped.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
