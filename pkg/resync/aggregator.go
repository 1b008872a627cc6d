package resync

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
)

// AggregatedEntry is one error or warning recorded during a batch,
// tagged with the order reference it applies to (if any) for
// debugging a cycle after the fact.
type AggregatedEntry struct {
	Reference string
	Error     *apperrors.AppError
	At        time.Time
}

// Summary is the shape ErrorAggregator.Summary() returns.
type Summary struct {
	Processed       int
	ErrorCount      int
	WarningCount    int
	SuccessCount    int
	DurationSeconds float64
	Start           time.Time
	End             time.Time
	Errors          []AggregatedEntry
	Warnings        []AggregatedEntry
}

// CriticalBatchError is raised by RaiseIfCritical when the aggregator
// holds at least one Critical-severity error.
type CriticalBatchError struct {
	Count int
}

func (e *CriticalBatchError) Error() string {
	return fmt.Sprintf("batch aborted: %d critical error(s) recorded", e.Count)
}

// ErrorAggregator collects typed errors and warnings across one
// polling cycle, classifying by severity: High/Critical go to the
// error buffer, Low/Medium go to the warning buffer.
type ErrorAggregator struct {
	mu        sync.Mutex
	start     time.Time
	end       time.Time
	processed int
	successes int
	errors    []AggregatedEntry
	warnings  []AggregatedEntry
	critical  int
}

// NewErrorAggregator starts a new aggregator with its clock running.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{start: time.Now()}
}

// AddError records err, classified by its Severity. High and Critical
// go to the error buffer; Low and Medium go to the warning buffer.
func (a *ErrorAggregator) AddError(reference string, err *apperrors.AppError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := AggregatedEntry{Reference: reference, Error: err, At: time.Now()}
	switch err.Severity {
	case apperrors.SeverityHigh, apperrors.SeverityCritical:
		a.errors = append(a.errors, entry)
		if err.Severity == apperrors.SeverityCritical {
			a.critical++
		}
	default:
		a.warnings = append(a.warnings, entry)
	}
}

// AddWarning force-records err into the warning buffer regardless of
// severity, for cases like SkuUnresolved that are always a warning.
func (a *ErrorAggregator) AddWarning(reference string, err *apperrors.AppError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, AggregatedEntry{Reference: reference, Error: err, At: time.Now()})
}

// IncrementProcessed records one successfully processed unit.
func (a *ErrorAggregator) IncrementProcessed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processed++
	a.successes++
}

// HasCritical reports whether any Critical-severity error was recorded.
func (a *ErrorAggregator) HasCritical() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.critical > 0
}

// RaiseIfCritical returns a *CriticalBatchError if any stored error is
// flagged Critical, else nil.
func (a *ErrorAggregator) RaiseIfCritical() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.critical > 0 {
		return &CriticalBatchError{Count: a.critical}
	}
	return nil
}

// Summary snapshots the aggregator's state, closing its duration
// window as of the call.
func (a *ErrorAggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	end := time.Now()
	return Summary{
		Processed:       a.processed,
		ErrorCount:      len(a.errors),
		WarningCount:    len(a.warnings),
		SuccessCount:    a.successes,
		DurationSeconds: end.Sub(a.start).Seconds(),
		Start:           a.start,
		End:             end,
		Errors:          append([]AggregatedEntry(nil), a.errors...),
		Warnings:        append([]AggregatedEntry(nil), a.warnings...),
	}
}

// Reset clears all counters and restarts the clock. PollingOrchestrator
// does not call it: each cycle gets a fresh aggregator.
func (a *ErrorAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.start = time.Now()
	a.end = time.Time{}
	a.processed = 0
	a.successes = 0
	a.errors = nil
	a.warnings = nil
	a.critical = 0
}
