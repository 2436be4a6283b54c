package formfill

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/formpilot/internal/pdfform"
)

// Report contains the results of one document-processing request
type Report struct {
	ProcessingID    string
	Mode            string
	StartTime       time.Time
	Duration        time.Duration
	PageCount       int
	TextSource      string
	TextBlocks      int
	CandidateFields int
	FormFields      int
	AutoFilled      int
	Written         int
	Skipped         []pdfform.Skipped
	Warnings        []string
	Stages          []StageTiming
}

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// NewReport creates a report with a fresh processing ID
func NewReport(mode string) *Report {
	return &Report{
		ProcessingID: uuid.NewString(),
		Mode:         mode,
		StartTime:    time.Now(),
		Skipped:      make([]pdfform.Skipped, 0),
		Warnings:     make([]string, 0),
	}
}

// AddStage records a completed stage that began at start
func (r *Report) AddStage(name string, start time.Time) {
	r.Stages = append(r.Stages, StageTiming{Name: name, Duration: time.Since(start)})
}

// AddWarning records a recovered problem
func (r *Report) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasSkips returns true if any assignment was not written
func (r *Report) HasSkips() bool {
	return len(r.Skipped) > 0
}

// finish stamps the total duration
func (r *Report) finish() {
	r.Duration = time.Since(r.StartTime)
}

// Summary returns a human-readable summary of the request
func (r *Report) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Form %s Summary:\n", r.Mode)
	fmt.Fprintf(&sb, "  Processing ID: %s\n", r.ProcessingID)
	fmt.Fprintf(&sb, "  Pages: %d\n", r.PageCount)
	if r.TextSource != "" {
		fmt.Fprintf(&sb, "  Text Blocks: %d (%s)\n", r.TextBlocks, r.TextSource)
	} else {
		fmt.Fprintf(&sb, "  Text Blocks: %d\n", r.TextBlocks)
	}
	fmt.Fprintf(&sb, "  Candidate Fields: %d\n", r.CandidateFields)
	fmt.Fprintf(&sb, "  Form Fields: %d\n", r.FormFields)
	if r.Mode == ModeFill {
		fmt.Fprintf(&sb, "  Auto-filled: %d\n", r.AutoFilled)
		fmt.Fprintf(&sb, "  Written: %d\n", r.Written)
	}
	fmt.Fprintf(&sb, "  Duration: %v\n", r.Duration.Round(time.Millisecond))

	if len(r.Stages) > 0 {
		sb.WriteString("\nStages:\n")
		for _, s := range r.Stages {
			fmt.Fprintf(&sb, "  - %s: %v\n", s.Name, s.Duration.Round(time.Millisecond))
		}
	}

	if r.HasSkips() {
		sb.WriteString("\nSkipped:\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&sb, "  - %s (%s)\n", s.Name, s.Reason)
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}

	return sb.String()
}

// String returns a string representation of the report
func (r *Report) String() string {
	return r.Summary()
}
