package dictionary

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// LoadError describes one dictionary that failed during a full reload.
type LoadError struct {
	DictType  string    `json:"dictType"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// LoadMetrics describes the most recent full reload.
type LoadMetrics struct {
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	Duration     time.Duration `json:"duration"`
	SuccessCount int           `json:"successCount"`
	ErrorCount   int           `json:"errorCount"`
	Errors       []LoadError   `json:"errors"`
}

// Done reports whether the reload has been finalized.
func (m LoadMetrics) Done() bool {
	return !m.EndTime.IsZero()
}

type metricsRecorder struct {
	mu      sync.Mutex
	metrics LoadMetrics
	clock   clock.Clock
}

func (r *metricsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics = LoadMetrics{
		StartTime: r.clock.Now(),
		Errors:    []LoadError{},
	}
}

func (r *metricsRecorder) fail(dictTypes []string, err error) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dictType := range dictTypes {
		r.metrics.ErrorCount++
		r.metrics.Errors = append(r.metrics.Errors, LoadError{
			DictType:  dictType,
			Error:     err.Error(),
			Timestamp: now,
		})
	}
}

func (r *metricsRecorder) finish(successCount int) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.SuccessCount += successCount
	r.metrics.EndTime = now
	r.metrics.Duration = now.Sub(r.metrics.StartTime)
}

func (r *metricsRecorder) snapshot() LoadMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := r.metrics
	metrics.Errors = append([]LoadError(nil), r.metrics.Errors...)
	return metrics
}
