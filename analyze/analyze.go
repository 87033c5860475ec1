// Package analyze runs the post-recording classification pass: segment
// scheduling, parallel prediction, and event post-processing, aggregated
// into a single result document.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearspeech/disfluency/classify"
	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/events"
	"github.com/clearspeech/disfluency/feature"
	"github.com/clearspeech/disfluency/logging"
	"github.com/clearspeech/disfluency/metrics"
)

// eventSource attributes emitted events to the CNN classifier path.
const eventSource = "cnn_model"

// Summary aggregates one analysis pass for consumers that don't walk the
// event list.
type Summary struct {
	SegmentCount          int            `json:"segmentCount"`
	TotalSegments         int            `json:"totalSegments"`
	SuccessfulPredictions int            `json:"successfulPredictions"`
	AverageConfidence     float64        `json:"averageConfidence"`
	DominantType          string         `json:"dominantType"`
	ClassDistribution     map[string]int `json:"classDistribution"`
	HasEvents             bool           `json:"hasEvents"`
	Error                 string         `json:"error,omitempty"`
}

// ProcessingInfo carries pass diagnostics.
type ProcessingInfo struct {
	ProcessingTime float64  `json:"processing_time"`
	Errors         []string `json:"errors"`
	ModelVersion   string   `json:"model_version"`
}

// Result is the complete analysis output for one recording.
type Result struct {
	Events         []events.Event `json:"events"`
	Summary        Summary        `json:"summary"`
	ProcessingInfo ProcessingInfo `json:"processing_info"`
}

// Analyzer runs classification passes over finished recordings. One
// analyzer can serve many recordings; per-pass state lives on the stack.
type Analyzer struct {
	cfg       *config.Config
	predictor classify.Predictor
	builder   *feature.TensorBuilder
	post      *events.PostProcessor
	metrics   *metrics.Metrics
	logger    logging.Logger
}

// NewAnalyzer wires the pass components together. predictor may be nil:
// analysis then still succeeds with an empty event list and an error
// noted in the summary, so a missing classifier never breaks recording.
func NewAnalyzer(cfg *config.Config, predictor classify.Predictor, m *metrics.Metrics) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	builder, err := feature.NewTensorBuilder(cfg.Classification)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor builder: %w", err)
	}

	vocab := classify.DefaultVocabulary()
	modelVersion := ""
	if predictor != nil {
		vocab = predictor.Vocabulary()
		modelVersion = predictor.ModelVersion()
	}

	return &Analyzer{
		cfg:       cfg,
		predictor: predictor,
		builder:   builder,
		post:      events.NewPostProcessor(cfg.Events, vocab, eventSource, modelVersion),
		metrics:   m,
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Analyze classifies a finished recording. The returned result is always
// usable: classifier unavailability and per-segment failures surface in
// Summary.Error and ProcessingInfo.Errors rather than failing the pass.
// Cancelling ctx abandons remaining segments; events are built from
// whatever completed.
func (a *Analyzer) Analyze(ctx context.Context, samples []float64, sampleRate int) (*Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	start := time.Now()

	result := &Result{
		Events: []events.Event{},
		Summary: Summary{
			ClassDistribution: map[string]int{},
		},
		ProcessingInfo: ProcessingInfo{
			Errors:       []string{},
			ModelVersion: a.modelVersion(),
		},
	}

	defer func() {
		result.ProcessingInfo.ProcessingTime = time.Since(start).Seconds()
		if a.metrics != nil {
			a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if len(samples) == 0 {
		result.Summary.Error = "empty recording"
		return result, nil
	}

	if a.predictor == nil {
		result.Summary.Error = classify.ErrUnavailable.Error()
		a.logger.Warn("analysis requested without a classifier")
		return result, nil
	}

	scheduler := classify.NewScheduler(a.cfg.Classification, sampleRate)
	segments := scheduler.Segments(samples)

	a.logger.Info("starting analysis pass", logging.Fields{
		"duration_s": float64(len(samples)) / float64(sampleRate),
		"segments":   len(segments),
	})

	results, errs := classify.Run(ctx, segments, a.builder, sampleRate, a.predictor, a.cfg.Classification.Workers, a.metrics)

	for _, err := range errs {
		result.ProcessingInfo.Errors = append(result.ProcessingInfo.Errors, err.Error())
		if errors.Is(err, classify.ErrUnavailable) && result.Summary.Error == "" {
			result.Summary.Error = classify.ErrUnavailable.Error()
		}
	}

	if evts := a.post.Process(results); evts != nil {
		result.Events = evts
	}
	a.summarize(result, len(segments), results)

	if a.metrics != nil {
		for _, ev := range result.Events {
			a.metrics.EventsEmitted.WithLabelValues(ev.Type).Inc()
		}
	}

	a.logger.Info("analysis pass complete", logging.Fields{
		"events":     len(result.Events),
		"failures":   len(errs),
		"duration_s": time.Since(start).Seconds(),
	})

	return result, nil
}

// summarize fills the aggregate view from the successful predictions.
func (a *Analyzer) summarize(result *Result, totalSegments int, results []classify.SegmentResult) {
	s := &result.Summary
	s.TotalSegments = totalSegments
	s.SegmentCount = len(results)
	s.SuccessfulPredictions = len(results)
	s.HasEvents = len(result.Events) > 0

	if len(results) == 0 {
		return
	}

	sum := 0.0
	for _, r := range results {
		sum += r.Prediction.Confidence
		s.ClassDistribution[r.Prediction.Class]++
	}
	s.AverageConfidence = sum / float64(len(results))

	// Dominant type favors disfluency classes; a recording is only
	// "dominantly fluent" when nothing else was predicted at all.
	benign := a.vocabulary().Benign()
	best, bestCount := benign, 0
	for class, count := range s.ClassDistribution {
		if class == benign {
			continue
		}
		if count > bestCount || (count == bestCount && class < best) {
			best, bestCount = class, count
		}
	}
	if bestCount == 0 {
		best = benign
	}
	s.DominantType = best
}

func (a *Analyzer) vocabulary() *classify.Vocabulary {
	if a.predictor != nil {
		return a.predictor.Vocabulary()
	}
	return classify.DefaultVocabulary()
}

func (a *Analyzer) modelVersion() string {
	if a.predictor != nil {
		return a.predictor.ModelVersion()
	}
	return ""
}
