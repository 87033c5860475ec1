package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clearspeech/disfluency/feature"
	"github.com/clearspeech/disfluency/logging"
	"github.com/clearspeech/disfluency/metrics"
)

// SegmentResult pairs a segment with its validated prediction.
type SegmentResult struct {
	Segment    Segment
	Prediction *Prediction
}

// Run classifies all segments across a bounded worker pool. Segments are
// independent, so order of execution does not matter; results are sorted
// by segment start before being returned, ready for the event
// post-processor.
//
// Per-segment failures are collected and the segment excluded — they never
// abort the remaining segments. Cancelling ctx abandons unstarted work;
// results already collected are returned intact.
func Run(ctx context.Context, segments []Segment, builder *feature.TensorBuilder, sourceRate int, predictor Predictor, workers int, m *metrics.Metrics) ([]SegmentResult, []error) {
	if len(segments) == 0 {
		return nil, nil
	}

	if workers < 1 {
		workers = 1
	}
	workers = min(workers, len(segments))

	logger := logging.WithFields(logging.Fields{
		"component": "classify_pool",
		"segments":  len(segments),
		"workers":   workers,
	})
	logger.Debug("starting classification pass")

	vocab := predictor.Vocabulary()

	type indexed struct {
		idx    int
		result SegmentResult
		err    error
	}

	jobs := make(chan int, len(segments))
	out := make(chan indexed, len(segments))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					out <- indexed{idx: idx, err: err}
					continue
				}

				seg := segments[idx]
				res, err := classifyOne(ctx, seg, builder, sourceRate, predictor, vocab, m)
				out <- indexed{idx: idx, result: res, err: err}
			}
		}()
	}

	for i := range segments {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(out)

	results := make([]SegmentResult, 0, len(segments))
	var errs []error
	for item := range out {
		if item.err != nil {
			if !errors.Is(item.err, context.Canceled) {
				errs = append(errs, fmt.Errorf("segment %d (%s-%s): %w",
					item.idx+1, segments[item.idx].Start, segments[item.idx].End, item.err))
			}
			continue
		}
		results = append(results, item.result)
	}

	// The post-processor requires strict time order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Segment.Start < results[j].Segment.Start
	})

	logger.Debug("classification pass finished", logging.Fields{
		"succeeded": len(results),
		"failed":    len(errs),
	})

	return results, errs
}

func classifyOne(ctx context.Context, seg Segment, builder *feature.TensorBuilder, sourceRate int, predictor Predictor, vocab *Vocabulary, m *metrics.Metrics) (SegmentResult, error) {
	if m != nil {
		m.SegmentsScheduled.Inc()
	}

	tensor, err := builder.Build(seg.Samples, sourceRate)
	if err != nil {
		return SegmentResult{}, fmt.Errorf("feature extraction: %w", err)
	}

	start := time.Now()
	prediction, err := predictor.Predict(ctx, tensor)
	if err != nil {
		if m != nil {
			m.InferenceFailures.Inc()
		}
		return SegmentResult{}, err
	}
	if m != nil {
		m.InferenceDuration.Observe(time.Since(start).Seconds())
	}

	if err := ValidatePrediction(vocab, prediction); err != nil {
		if m != nil {
			m.InferenceFailures.Inc()
		}
		return SegmentResult{}, fmt.Errorf("invalid prediction: %w", err)
	}

	if m != nil {
		m.SegmentsClassified.Inc()
	}

	return SegmentResult{Segment: seg, Prediction: prediction}, nil
}
