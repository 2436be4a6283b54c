package inbox

import (
	"sync"
	"time"
)

// State is the current activity of the watcher
type State string

const (
	// StateIdle means the watcher is waiting for the next scan
	StateIdle State = "idle"

	// StateScanning means a scan is in progress
	StateScanning State = "scanning"

	// StateError means the last scan failed
	StateError State = "error"
)

// Status is the watcher status served on /status
type Status struct {
	State        State          `json:"state"`
	LastScanTime *time.Time     `json:"last_scan_time,omitempty"`
	NextScanTime *time.Time     `json:"next_scan_time,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CurrentScan  *ScanProgress  `json:"current_scan,omitempty"`
	LastResult   *ResultSummary `json:"last_result,omitempty"`

	// UptimeSeconds is how long the watcher has been running
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ScanProgress tracks an in-progress scan
type ScanProgress struct {
	StartTime       time.Time `json:"start_time"`
	DocumentsTotal  int       `json:"documents_total"`
	Processed       int       `json:"documents_processed"`
	CurrentDocument string    `json:"current_document,omitempty"`
}

// ResultSummary is the serializable part of a completed scan
type ResultSummary struct {
	Duration     time.Duration `json:"duration"`
	Total        int           `json:"total"`
	Processed    int           `json:"processed"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	SkippedCount int           `json:"skipped_count"`
}

// StatusTracker tracks the watcher's status. Safe for concurrent use.
type StatusTracker struct {
	mu         sync.RWMutex
	state      State
	startTime  time.Time
	lastScan   *time.Time
	nextScan   *time.Time
	errMsg     string
	current    *ScanProgress
	lastResult *ResultSummary
}

// NewStatusTracker creates a tracker in the idle state
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		state:     StateIdle,
		startTime: time.Now(),
	}
}

// Status returns a snapshot of the current status
func (st *StatusTracker) Status() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var current *ScanProgress
	if st.current != nil {
		cp := *st.current
		current = &cp
	}

	return Status{
		State:         st.state,
		LastScanTime:  st.lastScan,
		NextScanTime:  st.nextScan,
		ErrorMessage:  st.errMsg,
		CurrentScan:   current,
		LastResult:    st.lastResult,
		UptimeSeconds: int64(time.Since(st.startTime).Seconds()),
	}
}

// ScanStarted records the start of a scan over total documents
func (st *StatusTracker) ScanStarted(total int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.state = StateScanning
	st.lastScan = &now
	st.errMsg = ""
	st.current = &ScanProgress{StartTime: now, DocumentsTotal: total}
}

// UpdateProgress records the document being processed
func (st *StatusTracker) UpdateProgress(processed int, current string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current != nil {
		st.current.Processed = processed
		st.current.CurrentDocument = current
	}
}

// ScanCompleted records a finished scan
func (st *StatusTracker) ScanCompleted(summary ResultSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateIdle
	st.current = nil
	st.lastResult = &summary
	st.errMsg = ""
}

// ScanFailed records a scan that could not run
func (st *StatusTracker) ScanFailed(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state = StateError
	st.current = nil
	if err != nil {
		st.errMsg = err.Error()
	}
}

// SetNextScanTime records when the next scheduled scan runs
func (st *StatusTracker) SetNextScanTime(t time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextScan = &t
}
