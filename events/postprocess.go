package events

import (
	"time"

	"github.com/clearspeech/disfluency/classify"
	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/logging"
)

// PostProcessor turns raw per-segment predictions into events. It is a
// two-state hysteresis machine (idle, active) that suppresses frame-level
// prediction noise: short non-benign runs are discarded, contiguous
// same-class runs merge into a single event.
//
// Process must be called by exactly one goroutine; the active slot is
// mutated strictly in time order.
type PostProcessor struct {
	cfg          config.EventConfig
	vocab        *classify.Vocabulary
	source       string
	modelVersion string
	logger       logging.Logger
}

// activeEvent is the in-progress event the machine is tracking.
type activeEvent struct {
	class   string
	start   time.Duration
	end     time.Duration
	maxConf float64
}

// NewPostProcessor creates a post-processor over the given vocabulary.
// source and modelVersion are stamped onto every emitted event.
func NewPostProcessor(cfg config.EventConfig, vocab *classify.Vocabulary, source, modelVersion string) *PostProcessor {
	return &PostProcessor{
		cfg:          cfg,
		vocab:        vocab,
		source:       source,
		modelVersion: modelVersion,
		logger: logging.WithFields(logging.Fields{
			"component": "event_postprocessor",
		}),
	}
}

// Process walks the time-ordered results and returns the finalized event
// list. Per prediction the rules apply in this exact order: benign class
// closes, low confidence closes, confident-benign probabilities close,
// an ambiguous benign/non-benign margin skips, and only then does a
// confident non-benign prediction extend or open an event. Reordering
// these changes which windows count as ambiguous versus confidently
// benign.
func (pp *PostProcessor) Process(results []classify.SegmentResult) []Event {
	var (
		events  []Event
		active  *activeEvent
		lastEnd time.Duration
	)

	closeActive := func() {
		if active == nil {
			return
		}
		if ev, ok := pp.finalize(active); ok {
			events = append(events, ev)
			lastEnd = active.end
		}
		active = nil
	}

	for _, r := range results {
		p := r.Prediction
		seg := r.Segment

		benignP := p.Probabilities[pp.vocab.BenignIndex()]
		nonBenignP := pp.maxNonBenign(p.Probabilities)

		switch {
		case p.Class == pp.vocab.Benign():
			closeActive()

		case p.Confidence < pp.cfg.ConfidenceThreshold:
			closeActive()

		case benignP > pp.cfg.BenignOverrideProb && nonBenignP < pp.cfg.BenignOverrideOther:
			closeActive()

		case nonBenignP < benignP+pp.cfg.MarginThreshold:
			// Ambiguous: neither opens, extends, nor closes anything.

		default:
			if active != nil && active.class == p.Class {
				active.end = max(active.end, seg.End)
				active.maxConf = max(active.maxConf, p.Confidence)
				continue
			}

			if active != nil {
				// Overlapping schedules can run the old event past the
				// new one's start; truncate so emitted events stay
				// disjoint.
				active.end = min(active.end, seg.Start)
				closeActive()
			}

			start := max(seg.Start, lastEnd)
			if start >= seg.End {
				continue
			}
			active = &activeEvent{
				class:   p.Class,
				start:   start,
				end:     seg.End,
				maxConf: p.Confidence,
			}
		}
	}

	closeActive()

	pp.logger.Debug("post-processing complete", logging.Fields{
		"predictions": len(results),
		"events":      len(events),
	})

	return events
}

// finalize applies the minimum-duration filter and builds the emitted
// event. Returns false when the run is too short to count.
func (pp *PostProcessor) finalize(a *activeEvent) (Event, bool) {
	if a.end <= a.start || a.end-a.start < pp.cfg.MinEventDuration() {
		return Event{}, false
	}

	return Event{
		Type:         a.class,
		T0Ms:         int(a.start.Milliseconds()),
		T1Ms:         int(a.end.Milliseconds()),
		Confidence:   a.maxConf,
		Probability:  int(a.maxConf * 100),
		Severity:     pp.severity(a.maxConf),
		Source:       pp.source,
		ModelVersion: pp.modelVersion,
	}, true
}

// severity buckets a peak confidence. Bucket edges come from config, not
// constants.
func (pp *PostProcessor) severity(confidence float64) Severity {
	switch {
	case confidence >= pp.cfg.SeverityHigh:
		return SeverityHigh
	case confidence >= pp.cfg.SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// maxNonBenign returns the highest probability among the non-benign
// classes.
func (pp *PostProcessor) maxNonBenign(probs []float64) float64 {
	highest := 0.0
	for i, p := range probs {
		if i == pp.vocab.BenignIndex() {
			continue
		}
		if p > highest {
			highest = p
		}
	}
	return highest
}
