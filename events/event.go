// Package events merges time-ordered raw segment predictions into
// discrete disfluency events via a hysteresis state machine.
package events

// Severity buckets an event's peak confidence for display.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is one finalized disfluency occurrence. T0Ms/T1Ms are
// milliseconds from the start of the recording; Probability is the peak
// confidence as an integer percentage. Events within one analysis pass
// are non-overlapping and sorted by T0Ms.
type Event struct {
	Type         string   `json:"type"`
	T0Ms         int      `json:"t0"`
	T1Ms         int      `json:"t1"`
	Confidence   float64  `json:"confidence"`
	Probability  int      `json:"probability"`
	Severity     Severity `json:"severity"`
	Source       string   `json:"source"`
	ModelVersion string   `json:"model_version"`
}

// DurationMs returns the event length in milliseconds.
func (e Event) DurationMs() int {
	return e.T1Ms - e.T0Ms
}
