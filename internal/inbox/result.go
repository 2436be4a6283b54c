package inbox

import (
	"fmt"
	"strings"
	"time"
)

// ScanResult contains the results of one pass over the inbox
type ScanResult struct {
	Total        int
	Processed    int
	SuccessCount int
	FailureCount int
	SkippedCount int
	Duration     time.Duration
	Successes    []DocumentResult
	Failures     []DocumentFailure
}

// DocumentResult describes a filled document
type DocumentResult struct {
	Name         string
	ProcessingID string
	OutputPath   string
	AutoFilled   int
	Written      int
	Duration     time.Duration
}

// DocumentFailure describes a document that could not be filled
type DocumentFailure struct {
	Name  string
	Error error
}

// NewScanResult creates an empty result
func NewScanResult() *ScanResult {
	return &ScanResult{
		Successes: make([]DocumentResult, 0),
		Failures:  make([]DocumentFailure, 0),
	}
}

// AddSuccess records a filled document
func (r *ScanResult) AddSuccess(doc DocumentResult) {
	r.Successes = append(r.Successes, doc)
	r.SuccessCount++
}

// AddError records a failed document
func (r *ScanResult) AddError(name string, err error) {
	r.Failures = append(r.Failures, DocumentFailure{Name: name, Error: err})
	r.FailureCount++
}

// HasFailures returns true if any document failed
func (r *ScanResult) HasFailures() bool {
	return r.FailureCount > 0
}

// ResultSummary returns the counters without per-document detail
func (r *ScanResult) ResultSummary() ResultSummary {
	return ResultSummary{
		Duration:     r.Duration,
		Total:        r.Total,
		Processed:    r.Processed,
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		SkippedCount: r.SkippedCount,
	}
}

// Summary returns a human-readable summary
func (r *ScanResult) Summary() string {
	var sb strings.Builder

	sb.WriteString("Inbox Summary:\n")
	fmt.Fprintf(&sb, "  Documents: %d\n", r.Total)
	fmt.Fprintf(&sb, "  Processed: %d\n", r.Processed)
	fmt.Fprintf(&sb, "  Filled: %d\n", r.SuccessCount)
	fmt.Fprintf(&sb, "  Failed: %d\n", r.FailureCount)
	fmt.Fprintf(&sb, "  Unchanged: %d\n", r.SkippedCount)
	fmt.Fprintf(&sb, "  Duration: %v\n", r.Duration)

	if len(r.Successes) > 0 {
		sb.WriteString("\nFilled:\n")
		for _, s := range r.Successes {
			fmt.Fprintf(&sb, "  - %s -> %s (%d auto-filled, %d written)\n", s.Name, s.OutputPath, s.AutoFilled, s.Written)
		}
	}

	if r.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&sb, "  - %s: %v\n", f.Name, f.Error)
		}
	}

	return sb.String()
}
