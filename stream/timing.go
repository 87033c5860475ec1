package stream

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// latencyHistorySize bounds the rolling latency window.
	latencyHistorySize = 50
	// delayFactor scales the mean latency into the compensation delay.
	delayFactor = 1.2
	// maxDelay caps the compensation delay.
	maxDelay = 200 * time.Millisecond
)

// Compensator aligns the scrolling visualization cursor to the perceived
// audio position despite variable per-column compute jitter. It keeps a
// bounded rolling history of per-column processing latencies and derives a
// compensation delay from their mean.
//
// Only the single producing consumer may call Record; readers may call
// Delay and CompensatedTime concurrently from the display side.
type Compensator struct {
	start time.Time

	mu        sync.RWMutex
	latencies []float64 // seconds, ring buffer
	next      int
	count     int
	delay     time.Duration
}

// NewCompensator creates a compensator anchored at the recording start.
func NewCompensator(start time.Time) *Compensator {
	return &Compensator{
		start:     start,
		latencies: make([]float64, latencyHistorySize),
	}
}

// Record adds one per-column processing latency and recomputes the
// compensation delay: clamp(1.2 x mean, 0, 200ms).
func (c *Compensator) Record(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies[c.next] = latency.Seconds()
	c.next = (c.next + 1) % latencyHistorySize
	if c.count < latencyHistorySize {
		c.count++
	}

	mean := stat.Mean(c.latencies[:c.count], nil)
	delay := time.Duration(delayFactor * mean * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	c.delay = delay
}

// Delay returns the current compensation delay.
func (c *Compensator) Delay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delay
}

// CompensatedTime maps a column's generation timestamp to its display
// position: elapsed time since recording start minus the compensation
// delay, floored at zero.
func (c *Compensator) CompensatedTime(generatedAt time.Time) time.Duration {
	t := generatedAt.Sub(c.start) - c.Delay()
	if t < 0 {
		return 0
	}
	return t
}
