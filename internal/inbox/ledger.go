package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LedgerFileVersion is the current version of the ledger file format
const LedgerFileVersion = 1

// EntryStatus is the outcome of the last attempt on a document
type EntryStatus string

const (
	// EntryFilled means the document was filled and written
	EntryFilled EntryStatus = "filled"

	// EntryFailed means the last attempt failed
	EntryFailed EntryStatus = "failed"
)

// Entry records what happened to one inbox document
type Entry struct {
	// Name is the file name inside the inbox
	Name string `json:"name"`

	// Hash is the SHA256 of the file content. A new hash means a new document.
	Hash string `json:"hash"`

	Status      EntryStatus `json:"status"`
	ProcessedAt time.Time   `json:"processed_at"`

	// OutputPath is where the filled copy was written
	OutputPath string `json:"output_path,omitempty"`

	ProcessingID string `json:"processing_id,omitempty"`
	AutoFilled   int    `json:"auto_filled"`
	Written      int    `json:"written"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// NeedsProcessing reports whether a file with the given hash should be
// (re)processed. Failed documents are retried up to maxRetries times.
func (e *Entry) NeedsProcessing(hash string, maxRetries int) bool {
	if e == nil || e.Hash != hash {
		return true
	}
	if e.Status == EntryFailed {
		return e.RetryCount < maxRetries
	}
	return false
}

type ledgerFile struct {
	Version  int               `json:"version"`
	LastScan time.Time         `json:"last_scan"`
	Entries  map[string]*Entry `json:"entries"`
}

// Ledger persists inbox processing state between runs
type Ledger struct {
	mu       sync.RWMutex
	filePath string
	lastScan time.Time
	entries  map[string]*Entry
}

// NewLedger creates an empty ledger backed by filePath
func NewLedger(filePath string) *Ledger {
	return &Ledger{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}
}

// Load reads the ledger file. A missing file leaves the ledger empty.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.filePath)
	if os.IsNotExist(err) {
		l.entries = make(map[string]*Entry)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse ledger file: %w", err)
	}
	if file.Version != LedgerFileVersion {
		return fmt.Errorf("unsupported ledger file version %d (expected %d)", file.Version, LedgerFileVersion)
	}

	l.lastScan = file.LastScan
	l.entries = file.Entries
	if l.entries == nil {
		l.entries = make(map[string]*Entry)
	}
	return nil
}

// Save writes the ledger atomically
func (l *Ledger) Save() error {
	l.mu.RLock()
	data, err := json.MarshalIndent(ledgerFile{
		Version:  LedgerFileVersion,
		LastScan: l.lastScan,
		Entries:  l.entries,
	}, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmpFile := l.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := os.Rename(tmpFile, l.filePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp ledger file: %w", err)
	}
	return nil
}

// Get returns a copy of the entry for name, or nil
func (l *Ledger) Get(name string) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[name]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// Put stores an entry under its name
func (l *Ledger) Put(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.Name] = &e
}

// MarkFailed records a failed attempt, counting retries of the same content
func (l *Ledger) MarkFailed(name, hash string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[name]
	if !ok || e.Hash != hash {
		e = &Entry{Name: name, Hash: hash}
		l.entries[name] = e
	} else {
		e.RetryCount++
	}
	e.Status = EntryFailed
	e.ProcessedAt = time.Now()
	e.OutputPath = ""
	if err != nil {
		e.Error = err.Error()
	}
}

// Touch updates the last scan time
func (l *Ledger) Touch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastScan = time.Now()
}

// LastScan returns when the inbox was last scanned
func (l *Ledger) LastScan() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastScan
}

// Count returns the number of tracked documents
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset forgets every document
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*Entry)
}
