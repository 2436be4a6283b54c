// Package inbox fills every PDF dropped into a directory, either once or on
// a schedule, and remembers what it has already filled.
package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/profile"
)

// Filler fills one PDF. formfill.Service satisfies it.
type Filler interface {
	Fill(ctx context.Context, pdf []byte, p *profile.Profile, overrides map[string]string) (*formfill.FillResult, error)
}

const (
	defaultInterval   = 5 * time.Minute
	defaultMaxRetries = 3
	documentTimeout   = 10 * time.Minute

	filledSuffix = "-filled"
)

// Watcher fills new inbox documents
type Watcher struct {
	filler     Filler
	profile    *profile.Profile
	ledger     *Ledger
	logger     *logger.Logger
	inputDir   string
	outputDir  string
	interval   time.Duration
	maxRetries int
	statusAddr string

	status     *StatusTracker
	trigger    chan struct{}
	httpServer *http.Server
}

// Config holds configuration for the watcher
type Config struct {
	Filler  Filler
	Profile *profile.Profile
	Logger  *logger.Logger

	InputDir string

	// OutputDir receives the filled copies (default: InputDir)
	OutputDir string

	// LedgerFile tracks processed documents (default: OutputDir/.formpilot-inbox.json)
	LedgerFile string

	// Interval between scans in Run (default: 5 minutes)
	Interval time.Duration

	// MaxRetries bounds attempts on a document that keeps failing (default: 3)
	MaxRetries int

	// StatusAddr serves /health, /status and /trigger when set (e.g. ":8089")
	StatusAddr string
}

// New creates a watcher and loads its ledger
func New(cfg *Config) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Filler == nil {
		return nil, fmt.Errorf("filler is required")
	}
	if cfg.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("input directory is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = cfg.InputDir
	}
	ledgerFile := cfg.LedgerFile
	if ledgerFile == "" {
		ledgerFile = filepath.Join(outputDir, ".formpilot-inbox.json")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	ledger := NewLedger(ledgerFile)
	if err := ledger.Load(); err != nil {
		log.WithError(err).Warn("Failed to load inbox ledger, starting fresh")
		ledger.Reset()
	}

	return &Watcher{
		filler:     cfg.Filler,
		profile:    cfg.Profile,
		ledger:     ledger,
		logger:     log,
		inputDir:   cfg.InputDir,
		outputDir:  outputDir,
		interval:   interval,
		maxRetries: maxRetries,
		statusAddr: cfg.StatusAddr,
		status:     NewStatusTracker(),
		trigger:    make(chan struct{}, 1),
	}, nil
}

// Status returns the current watcher status
func (w *Watcher) Status() Status {
	return w.status.Status()
}

// Trigger requests a scan outside the schedule. It returns false when one is
// already pending.
func (w *Watcher) Trigger() bool {
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run scans immediately and then on every interval until ctx is cancelled
// or a shutdown signal arrives
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.WithFields("dir", w.inputDir, "interval", w.interval).Info("Watching inbox")

	if w.statusAddr != "" {
		w.startStatusServer()
		defer w.stopStatusServer()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runScan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Context canceled, stopping watcher")
			return ctx.Err()

		case sig := <-sigChan:
			w.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
			return nil

		case <-w.trigger:
			w.logger.Info("Manual scan requested")
			w.runScan(ctx)

		case <-ticker.C:
			w.runScan(ctx)
		}
	}
}

func (w *Watcher) runScan(ctx context.Context) {
	result, err := w.Scan(ctx)
	w.status.SetNextScanTime(time.Now().Add(w.interval))
	if err != nil {
		w.logger.WithError(err).Error("Inbox scan failed")
		return
	}

	w.logger.WithFields(
		"total", result.Total,
		"processed", result.Processed,
		"filled", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", result.Duration,
	).Info("Inbox scan completed")

	for _, f := range result.Failures {
		w.logger.WithDocumentID(f.Name).WithError(f.Error).Warn("Document fill failed")
	}
}

// Scan fills every new or changed PDF in the inbox once
func (w *Watcher) Scan(ctx context.Context) (*ScanResult, error) {
	startTime := time.Now()
	result := NewScanResult()

	names, err := w.listDocuments()
	if err != nil {
		w.status.ScanFailed(err)
		return nil, err
	}
	result.Total = len(names)
	w.status.ScanStarted(len(names))

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		err = fmt.Errorf("failed to create output directory: %w", err)
		w.status.ScanFailed(err)
		return nil, err
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			w.status.ScanFailed(err)
			return nil, err
		}
		w.status.UpdateProgress(i, name)

		data, err := os.ReadFile(filepath.Join(w.inputDir, name))
		if err != nil {
			result.AddError(name, fmt.Errorf("failed to read document: %w", err))
			continue
		}
		hash := contentHash(data)

		if !w.ledger.Get(name).NeedsProcessing(hash, w.maxRetries) {
			result.SkippedCount++
			continue
		}
		result.Processed++

		doc, err := w.fillDocument(ctx, name, data)
		if err != nil {
			w.ledger.MarkFailed(name, hash, err)
			result.AddError(name, err)
		} else {
			w.ledger.Put(Entry{
				Name:         name,
				Hash:         hash,
				Status:       EntryFilled,
				ProcessedAt:  time.Now(),
				OutputPath:   doc.OutputPath,
				ProcessingID: doc.ProcessingID,
				AutoFilled:   doc.AutoFilled,
				Written:      doc.Written,
			})
			result.AddSuccess(*doc)
		}

		// Persist per document
		if err := w.ledger.Save(); err != nil {
			w.logger.WithError(err).Warn("Failed to save inbox ledger")
		}
	}

	w.ledger.Touch()
	if err := w.ledger.Save(); err != nil {
		w.logger.WithError(err).Warn("Failed to save inbox ledger")
	}

	result.Duration = time.Since(startTime)
	w.status.ScanCompleted(result.ResultSummary())
	return result, nil
}

func (w *Watcher) fillDocument(ctx context.Context, name string, data []byte) (*DocumentResult, error) {
	log := w.logger.WithDocumentID(name)
	start := time.Now()

	docCtx, cancel := context.WithTimeout(ctx, documentTimeout)
	defer cancel()

	filled, err := w.filler.Fill(docCtx, data, w.profile, nil)
	if err != nil {
		return nil, fmt.Errorf("fill failed: %w", err)
	}

	outputPath := filepath.Join(w.outputDir, FilledName(name))
	if err := os.WriteFile(outputPath, filled.PDF, 0644); err != nil {
		return nil, fmt.Errorf("failed to write filled document: %w", err)
	}

	doc := &DocumentResult{
		Name:       name,
		OutputPath: outputPath,
		Duration:   time.Since(start),
	}
	if rep := filled.Report; rep != nil {
		doc.ProcessingID = rep.ProcessingID
		doc.AutoFilled = rep.AutoFilled
		doc.Written = rep.Written
	}

	log.WithFields("output", outputPath, "written", doc.Written, "duration", doc.Duration).Info("Filled document")
	return doc, nil
}

// listDocuments returns the inbox PDFs in name order, skipping filled copies
func (w *Watcher) listDocuments() ([]string, error) {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), filledSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// FilledName returns the output file name for an inbox document
func FilledName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + filledSuffix + ext
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StatusHandler serves the watcher's health, status and manual trigger
func (w *Watcher) StatusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("OK\n"))
	})
	mux.HandleFunc("/status", func(rw http.ResponseWriter, _ *http.Request) {
		respondJSON(rw, http.StatusOK, w.Status())
	})
	mux.HandleFunc("/trigger", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if w.Status().State == StateScanning || !w.Trigger() {
			respondJSON(rw, http.StatusConflict, ControlResponse{Success: false, Message: "Scan already in progress"})
			return
		}
		respondJSON(rw, http.StatusAccepted, ControlResponse{Success: true, Message: "Scan scheduled"})
	})
	return mux
}

// ControlResponse is returned by /trigger
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (w *Watcher) startStatusServer() {
	w.httpServer = &http.Server{
		Addr:              w.statusAddr,
		Handler:           w.StatusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		w.logger.WithFields("addr", w.statusAddr).Info("Starting status server")
		if err := w.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.WithError(err).Error("Status server failed")
		}
	}()
}

func (w *Watcher) stopStatusServer() {
	if w.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.httpServer.Shutdown(ctx); err != nil {
		w.logger.WithError(err).Warn("Failed to shut down status server gracefully")
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

var _ Filler = (*formfill.Service)(nil)
