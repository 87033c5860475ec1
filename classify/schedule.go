package classify

import (
	"time"

	"github.com/clearspeech/disfluency/config"
)

// Segment is one classifier input slice of the finished recording.
// Samples may be zero-padded beyond End-Start when the natural slice was
// shorter than the configured minimum; Start/End always describe the real
// audio range.
type Segment struct {
	Samples []float64
	Start   time.Duration
	End     time.Duration
}

// Scheduler slices the immutable full-session sample history into
// classifier segments under one of two policies: disjoint fixed-duration
// segments, or overlapping sliding windows for finer temporal granularity.
type Scheduler struct {
	cfg        config.ClassificationConfig
	sampleRate int
}

// NewScheduler creates a scheduler for a recording at the given rate.
func NewScheduler(cfg config.ClassificationConfig, sampleRate int) *Scheduler {
	return &Scheduler{cfg: cfg, sampleRate: sampleRate}
}

// Segments computes the segment list covering the whole recording. Runs
// once, after capture ends. Segments are independent of each other and
// returned sorted by start time.
func (s *Scheduler) Segments(samples []float64) []Segment {
	if len(samples) == 0 {
		return nil
	}

	windowSamples := s.durationToSamples(s.cfg.WindowDuration())
	stepSamples := windowSamples
	if s.cfg.Policy == config.PolicySliding {
		stepSamples = s.durationToSamples(s.cfg.HopDuration())
	}
	minSamples := s.durationToSamples(s.cfg.MinSegmentDuration())

	numSegments := 1
	if len(samples) > windowSamples {
		numSegments = (len(samples)-windowSamples)/stepSamples + 1
		// Cover the tail if the last full window doesn't reach the end.
		if (numSegments-1)*stepSamples+windowSamples < len(samples) {
			numSegments++
		}
	}

	segments := make([]Segment, 0, numSegments)
	for i := 0; i < numSegments; i++ {
		start := i * stepSamples
		if start >= len(samples) {
			break
		}
		end := min(start+windowSamples, len(samples))

		slice := samples[start:end]
		padded := s.pad(slice, windowSamples, minSamples)

		segments = append(segments, Segment{
			Samples: padded,
			Start:   s.samplesToDuration(start),
			End:     s.samplesToDuration(end),
		})
	}

	return segments
}

// pad applies the short-segment policy: segments below the minimum are
// zero-padded up to it; segments within 80% of a full window are padded to
// the full window so the classifier sees its trained duration.
func (s *Scheduler) pad(slice []float64, windowSamples, minSamples int) []float64 {
	target := len(slice)
	switch {
	case len(slice) < minSamples:
		target = minSamples
	case len(slice) < windowSamples && float64(len(slice)) >= 0.8*float64(windowSamples):
		target = windowSamples
	}

	if target == len(slice) {
		out := make([]float64, len(slice))
		copy(out, slice)
		return out
	}

	out := make([]float64, target)
	copy(out, slice)
	return out
}

func (s *Scheduler) durationToSamples(d time.Duration) int {
	return int(d.Seconds() * float64(s.sampleRate))
}

func (s *Scheduler) samplesToDuration(n int) time.Duration {
	return time.Duration(float64(n) / float64(s.sampleRate) * float64(time.Second))
}
