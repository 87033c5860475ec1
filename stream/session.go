// Package stream owns the real-time capture path: one Session per
// recording accumulates raw PCM chunks, emits mel spectrogram columns for
// the live display, and retains the full sample history for the
// post-recording classification pass.
package stream

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clearspeech/disfluency/config"
	"github.com/clearspeech/disfluency/dsp/common"
	"github.com/clearspeech/disfluency/feature"
	"github.com/clearspeech/disfluency/logging"
	"github.com/clearspeech/disfluency/metrics"
)

var (
	// ErrSessionFinished is returned when samples arrive after Finish.
	ErrSessionFinished = errors.New("session already finished")
	// ErrHistoryFull signals that the full-session sample history hit its
	// hard cap; further samples are dropped from the history (the live
	// display keeps running).
	ErrHistoryFull = errors.New("sample history cap reached, recording truncated")
)

// Column is one time-slice of the live spectrogram.
type Column struct {
	Magnitudes  []float64 `json:"magnitudes"` // length NumBands, values in [0, 1]
	GeneratedAt time.Time `json:"generated_at"`
}

// Session owns all per-recording state: the append-only sample history,
// the short-lived processing buffer, the capped display column history and
// the timing compensator. Create one per recording and dispose of it after
// analysis; nothing is shared between sessions.
//
// Ingest must be driven by a single goroutine (the capture callback
// consumer); readers of Columns, Level and the compensator may run
// elsewhere.
type Session struct {
	cfg        config.WindowConfig
	maxCols    int
	maxSamples int

	extractor *feature.Extractor
	comp      *Compensator
	logger    logging.Logger
	metrics   *metrics.Metrics

	mu          sync.RWMutex
	processing  []float64
	history     []float64
	columns     []Column
	columnCount int
	level       float64
	err         error
	finished    bool

	now func() time.Time
}

// NewSession creates a recording session. The metrics registry may be nil.
func NewSession(cfg *config.Config, m *metrics.Metrics) (*Session, error) {
	extractor, err := feature.NewExtractor(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature extractor: %w", err)
	}

	now := time.Now

	return &Session{
		cfg:        cfg.Window,
		maxCols:    cfg.Session.MaxColumns,
		maxSamples: cfg.Session.MaxHistorySeconds * cfg.Window.SampleRate,
		extractor:  extractor,
		comp:       NewCompensator(now()),
		logger: logging.WithFields(logging.Fields{
			"component":   "session",
			"sample_rate": cfg.Window.SampleRate,
		}),
		metrics:    m,
		processing: make([]float64, 0, cfg.Window.FFTSize*4),
		history:    make([]float64, 0, cfg.Window.SampleRate*4),
		now:        now,
	}, nil
}

// IngestPCM16 accepts one chunk of interleaved little-endian 16-bit mono
// PCM. Chunk size is arbitrary; an odd trailing byte is dropped. Complete
// windows are processed immediately, in order.
func (s *Session) IngestPCM16(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return ErrSessionFinished
	}

	// Truncate a malformed trailing byte rather than rejecting the chunk.
	usable := len(chunk) &^ 1

	for i := 0; i < usable; i += 2 {
		sample := int16(chunk[i]) | int16(chunk[i+1])<<8
		v := float64(sample) / 32768.0
		s.processing = append(s.processing, v)
		if len(s.history) < s.maxSamples {
			s.history = append(s.history, v)
		} else if s.err == nil {
			s.err = ErrHistoryFull
			s.logger.Warn("sample history cap reached", logging.Fields{
				"max_samples": s.maxSamples,
			})
		}
	}

	s.drainWindows()
	return nil
}

// drainWindows processes every complete window currently buffered. Caller
// holds the lock.
func (s *Session) drainWindows() {
	fftSize := s.cfg.FFTSize
	hopSize := s.cfg.HopSize

	for len(s.processing) >= fftSize {
		windowStart := s.now()

		win := s.processing[:fftSize]
		s.level = common.RMS(win)

		column, err := s.extractor.Column(win)
		if err != nil {
			// Should be unreachable with a validated config; surface once.
			if s.err == nil {
				s.err = err
				s.logger.Error(err, "feature extraction failed")
			}
		} else {
			generatedAt := s.now()
			s.appendColumn(Column{Magnitudes: column, GeneratedAt: generatedAt})
			s.comp.Record(generatedAt.Sub(windowStart))

			if s.metrics != nil {
				s.metrics.ColumnsProduced.Inc()
				s.metrics.ColumnLatency.Observe(generatedAt.Sub(windowStart).Seconds())
			}
		}

		// Keep the fftSize-hopSize overlap for the next window.
		remaining := len(s.processing) - hopSize
		copy(s.processing, s.processing[hopSize:])
		s.processing = s.processing[:remaining]
	}
}

func (s *Session) appendColumn(col Column) {
	s.columns = append(s.columns, col)
	s.columnCount++
	if len(s.columns) > s.maxCols {
		// Evict oldest beyond the display cap.
		excess := len(s.columns) - s.maxCols
		s.columns = append(s.columns[:0], s.columns[excess:]...)
	}
}

// Columns returns a snapshot of the retained display columns, oldest
// first.
func (s *Session) Columns() []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnCount returns the total number of columns produced, including
// evicted ones.
func (s *Session) ColumnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columnCount
}

// Level returns the RMS amplitude of the most recent window, for level
// metering.
func (s *Session) Level() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// Err returns the session-level error signal, if any. Streaming keeps
// running after it is set; callers decide whether to surface it.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Compensator exposes the timing compensator for the display cursor.
func (s *Session) Compensator() *Compensator {
	return s.comp
}

// Finish ends the capture. The sample history becomes immutable and is
// returned for the classification pass.
func (s *Session) Finish() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finished = true
	return s.history
}

// Duration returns the captured duration based on the retained history.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(float64(len(s.history)) / float64(s.cfg.SampleRate) * float64(time.Second))
}

// SampleRate returns the session sample rate.
func (s *Session) SampleRate() int {
	return s.cfg.SampleRate
}
