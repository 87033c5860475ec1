package events

import (
	"testing"
	"time"

	"github.com/clearspeech/disfluency/classify"
	"github.com/clearspeech/disfluency/config"
)

func testEventConfig() config.EventConfig {
	return config.EventConfig{
		MinDurationMs:       250,
		ConfidenceThreshold: 0.30,
		MarginThreshold:     0.05,
		BenignOverrideProb:  0.75,
		BenignOverrideOther: 0.40,
		SeverityHigh:        0.80,
		SeverityMedium:      0.60,
	}
}

func newTestProcessor() *PostProcessor {
	return NewPostProcessor(testEventConfig(), classify.DefaultVocabulary(), "cnn_model", "v1")
}

// result builds one segment result. Vocabulary order is
// [repetitions, prolongations, blocks, fluent].
func result(class string, confidence float64, probs []float64, startMs, endMs int) classify.SegmentResult {
	return classify.SegmentResult{
		Segment: classify.Segment{
			Start: time.Duration(startMs) * time.Millisecond,
			End:   time.Duration(endMs) * time.Millisecond,
		},
		Prediction: &classify.Prediction{
			Class:         class,
			Confidence:    confidence,
			Probabilities: probs,
		},
	}
}

func confidentBlocks(confidence float64, startMs, endMs int) classify.SegmentResult {
	return result("blocks", confidence, []float64{0.02, 0.03, confidence, 1 - confidence - 0.05}, startMs, endMs)
}

func fluent(startMs, endMs int) classify.SegmentResult {
	return result("fluent", 0.9, []float64{0.02, 0.03, 0.05, 0.9}, startMs, endMs)
}

func TestShortRunsSuppressed(t *testing.T) {
	pp := newTestProcessor()

	// Every non-benign run is 100ms, below the 250ms minimum.
	results := []classify.SegmentResult{
		fluent(0, 1000),
		confidentBlocks(0.9, 1000, 1100),
		fluent(1100, 2000),
		confidentBlocks(0.9, 2000, 2100),
		fluent(2100, 3000),
	}

	if events := pp.Process(results); len(events) != 0 {
		t.Errorf("Expected all short runs suppressed, got %d events", len(events))
	}
}

func TestContiguousRunMergesIntoOneEvent(t *testing.T) {
	pp := newTestProcessor()

	results := []classify.SegmentResult{
		confidentBlocks(0.7, 1000, 2000),
		confidentBlocks(0.9, 2000, 3000),
		confidentBlocks(0.8, 3000, 4000),
		fluent(4000, 5000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 merged event, got %d", len(events))
	}

	ev := events[0]
	if ev.T0Ms != 1000 || ev.T1Ms != 4000 {
		t.Errorf("Expected event spanning 1000-4000ms, got %d-%d", ev.T0Ms, ev.T1Ms)
	}

	// Confidence is the maximum over the run's inputs.
	if ev.Confidence != 0.9 {
		t.Errorf("Expected max confidence 0.9, got %f", ev.Confidence)
	}

	if ev.Probability != 90 {
		t.Errorf("Expected probability 90, got %d", ev.Probability)
	}

	if ev.Severity != SeverityHigh {
		t.Errorf("Expected high severity, got %s", ev.Severity)
	}

	if ev.Type != "blocks" {
		t.Errorf("Expected type 'blocks', got '%s'", ev.Type)
	}

	if ev.Source != "cnn_model" || ev.ModelVersion != "v1" {
		t.Errorf("Expected attribution stamped, got source '%s' version '%s'", ev.Source, ev.ModelVersion)
	}
}

func TestTrailingActiveEventClosedAtSequenceEnd(t *testing.T) {
	pp := newTestProcessor()

	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 1000),
		confidentBlocks(0.9, 1000, 2000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected trailing event closed at end of sequence, got %d events", len(events))
	}

	if events[0].T1Ms != 2000 {
		t.Errorf("Expected event ending at 2000ms, got %d", events[0].T1Ms)
	}
}

func TestLowConfidenceTreatedAsBenign(t *testing.T) {
	pp := newTestProcessor()

	// Confidence below 0.30 closes like a benign prediction.
	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 1000),
		result("blocks", 0.2, []float64{0.1, 0.1, 0.2, 0.6}, 1000, 2000),
		confidentBlocks(0.9, 2000, 2100),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event (second run too short after close), got %d", len(events))
	}

	if events[0].T1Ms != 1000 {
		t.Errorf("Expected first event closed at 1000ms, got %d", events[0].T1Ms)
	}
}

func TestConfidentBenignOverrideCloses(t *testing.T) {
	pp := newTestProcessor()

	// Top-1 says blocks with decent confidence, but the probability mass
	// is confidently benign: benignP > 0.75 and non-benign max < 0.4.
	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 1000),
		result("blocks", 0.35, []float64{0.02, 0.03, 0.15, 0.8}, 1000, 2000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected override to close the event, got %d events", len(events))
	}

	if events[0].T1Ms != 1000 {
		t.Errorf("Expected event closed before the override window, got end %d", events[0].T1Ms)
	}
}

func TestMarginRejectionSkipsWithoutClosing(t *testing.T) {
	pp := newTestProcessor()

	// benignP=0.8, nonBenignP=0.3: always ambiguous-or-benign regardless
	// of the reported top-1 confidence. Here it falls to the override
	// rule; with a lower benignP it falls to the margin rule. Either way
	// it must never extend an event.
	ambiguous := result("blocks", 0.95, []float64{0.1, 0.1, 0.3, 0.8}, 1000, 2000)

	if events := pp.Process([]classify.SegmentResult{ambiguous}); len(events) != 0 {
		t.Errorf("Expected no events from an ambiguous prediction, got %d", len(events))
	}

	// Margin case proper: benignP=0.5, nonBenignP=0.52 < 0.5+0.05. The
	// active event is neither extended nor closed.
	margin := result("blocks", 0.52, []float64{0.05, 0.05, 0.52, 0.5}, 1000, 2000)
	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 1000),
		margin,
		confidentBlocks(0.9, 2000, 3000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected skipped prediction to leave the run intact, got %d events", len(events))
	}

	if events[0].T0Ms != 0 || events[0].T1Ms != 3000 {
		t.Errorf("Expected single event 0-3000ms across the skip, got %d-%d", events[0].T0Ms, events[0].T1Ms)
	}
}

func TestClassChangeClosesAndOpens(t *testing.T) {
	pp := newTestProcessor()

	repetitions := func(confidence float64, startMs, endMs int) classify.SegmentResult {
		return result("repetitions", confidence, []float64{confidence, 0.03, 0.02, 1 - confidence - 0.05}, startMs, endMs)
	}

	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 1000),
		repetitions(0.7, 1000, 2000),
		fluent(2000, 3000),
	}

	events := pp.Process(results)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events after class change, got %d", len(events))
	}

	if events[0].Type != "blocks" || events[1].Type != "repetitions" {
		t.Errorf("Expected blocks then repetitions, got %s then %s", events[0].Type, events[1].Type)
	}

	// No overlap between consecutive events.
	if events[1].T0Ms < events[0].T1Ms {
		t.Errorf("Events overlap: first ends %d, second starts %d", events[0].T1Ms, events[1].T0Ms)
	}
}

func TestOverlappingWindowsStayDisjoint(t *testing.T) {
	pp := newTestProcessor()

	// Sliding 3s windows at 1s hop, all confidently blocks.
	results := []classify.SegmentResult{
		confidentBlocks(0.9, 0, 3000),
		confidentBlocks(0.85, 1000, 4000),
		confidentBlocks(0.8, 2000, 5000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected overlapping windows merged into 1 event, got %d", len(events))
	}

	if events[0].T0Ms != 0 || events[0].T1Ms != 5000 {
		t.Errorf("Expected merged event 0-5000ms, got %d-%d", events[0].T0Ms, events[0].T1Ms)
	}
}

func TestSeverityBuckets(t *testing.T) {
	pp := newTestProcessor()

	tests := []struct {
		confidence float64
		severity   Severity
	}{
		{0.95, SeverityHigh},
		{0.80, SeverityHigh},
		{0.79, SeverityMedium},
		{0.60, SeverityMedium},
		{0.55, SeverityLow},
	}

	for _, tt := range tests {
		results := []classify.SegmentResult{
			result("blocks", tt.confidence, []float64{0.01, 0.01, tt.confidence, 0.05}, 0, 1000),
		}

		events := pp.Process(results)
		if len(events) != 1 {
			t.Fatalf("Expected 1 event for confidence %f, got %d", tt.confidence, len(events))
		}

		if events[0].Severity != tt.severity {
			t.Errorf("Confidence %f: expected severity %s, got %s", tt.confidence, tt.severity, events[0].Severity)
		}
	}
}

func TestConfigurableBucketEdges(t *testing.T) {
	cfg := testEventConfig()
	cfg.SeverityHigh = 0.95
	cfg.SeverityMedium = 0.90
	pp := NewPostProcessor(cfg, classify.DefaultVocabulary(), "cnn_model", "v1")

	results := []classify.SegmentResult{
		result("blocks", 0.92, []float64{0.01, 0.01, 0.92, 0.05}, 0, 1000),
	}

	events := pp.Process(results)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	if events[0].Severity != SeverityMedium {
		t.Errorf("Expected medium under shifted edges, got %s", events[0].Severity)
	}
}

func TestEmptyInput(t *testing.T) {
	pp := newTestProcessor()

	if events := pp.Process(nil); len(events) != 0 {
		t.Errorf("Expected no events from empty input, got %d", len(events))
	}
}
