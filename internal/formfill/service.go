// Package formfill runs the document pipeline: text extraction, field
// detection, profile mapping, label translation and form filling.
package formfill

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/fieldmap"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
	"github.com/platinummonkey/formpilot/internal/pdfform"
	"github.com/platinummonkey/formpilot/internal/profile"
	"github.com/platinummonkey/formpilot/internal/translate"
)

// Report modes
const (
	ModeAnalyze = "Analysis"
	ModeFill    = "Fill"
)

// OverrideSource marks mappings whose value was supplied by the caller
const OverrideSource = "override"

// minTypeHintConfidence is the backend confidence a recommended field type
// must exceed before it replaces TEXT
const minTypeHintConfidence = 80

// Extractor returns the recognized text of a document
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) ([]ocr.TextBlock, error)
}

// statsReporter is implemented by extractors that keep per-call statistics
type statsReporter interface {
	LastStats() ocr.Stats
}

// FormReader exposes the structural form of a document
type FormReader interface {
	Fields(pdf []byte) ([]pdfform.StructuralField, error)
	PageCount(pdf []byte) (int, error)
}

// FormWriter writes values into structural fields
type FormWriter interface {
	Commit(pdf []byte, fields []pdfform.StructuralField, assignments []pdfform.Assignment) ([]byte, pdfform.CommitReport, error)
}

// Service coordinates the document pipeline
type Service struct {
	logger          *logger.Logger
	extractor       Extractor
	detector        *detect.Detector
	reader          FormReader
	writer          FormWriter
	mapper          *fieldmap.Mapper
	translator      *translate.Translator
	contextAnalysis bool
}

// Config holds the pipeline collaborators
type Config struct {
	Logger     *logger.Logger
	Extractor  Extractor
	Detector   *detect.Detector
	Reader     FormReader
	Writer     FormWriter
	Mapper     *fieldmap.Mapper
	Translator *translate.Translator

	// ContextAnalysis asks the translator for a context-aware label and type
	// for every text field in fill mode
	ContextAnalysis bool
}

// New creates a pipeline service
func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if cfg.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if cfg.Mapper == nil {
		return nil, fmt.Errorf("mapper is required")
	}

	translator := cfg.Translator
	if translator == nil {
		translator = translate.NewTranslator(nil, nil, translate.WithLogger(log))
	}

	return &Service{
		logger:          log,
		extractor:       cfg.Extractor,
		detector:        cfg.Detector,
		reader:          cfg.Reader,
		writer:          cfg.Writer,
		mapper:          cfg.Mapper,
		translator:      translator,
		contextAnalysis: cfg.ContextAnalysis,
	}, nil
}

// Translator returns the label translator used by the service
func (s *Service) Translator() *translate.Translator {
	return s.translator
}

// Analysis is the result of analysis mode
type Analysis struct {
	Fields      []pdfform.StructuralField `json:"fields"`
	Candidates  []detect.CandidateField   `json:"candidates"`
	Descriptors []FieldDescriptor         `json:"descriptors"`
	Report      *Report                   `json:"-"`
}

// FillResult is the result of fill mode
type FillResult struct {
	PDF         []byte                  `json:"-"`
	Descriptors []FieldDescriptor       `json:"descriptors"`
	Mappings    []fieldmap.FieldMapping `json:"mappings"`
	Report      *Report                 `json:"-"`
}

// scan is the shared front half of the pipeline
type scan struct {
	blocks     []ocr.TextBlock
	candidates []detect.CandidateField
	fields     []pdfform.StructuralField
}

// Analyze lists the document's fields for review
func (s *Service) Analyze(ctx context.Context, pdf []byte) (*Analysis, error) {
	report := NewReport(ModeAnalyze)
	log := logger.FromContext(ctx, s.logger).WithProcessingID(report.ProcessingID).WithOperation("analyze")
	log.Info("Starting form analysis")

	sc, err := s.scan(ctx, pdf, report, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var descriptors []FieldDescriptor
	if len(sc.fields) > 0 {
		descriptors = s.describeFields(ctx, sc.fields)
	} else {
		descriptors = s.describeCandidates(ctx, sc.candidates)
	}
	report.AddStage("describe", start)
	report.finish()

	log.WithFields(
		"form_fields", report.FormFields,
		"candidates", report.CandidateFields,
		"duration", report.Duration,
	).Info("Form analysis completed")

	return &Analysis{
		Fields:      sc.fields,
		Candidates:  sc.candidates,
		Descriptors: descriptors,
		Report:      report,
	}, nil
}

// Fill maps the profile onto the document's fields and writes the values.
// Overrides replace mapped values for the named fields before the commit.
func (s *Service) Fill(ctx context.Context, pdf []byte, p *profile.Profile, overrides map[string]string) (*FillResult, error) {
	report := NewReport(ModeFill)
	log := logger.FromContext(ctx, s.logger).WithProcessingID(report.ProcessingID).WithOperation("fill")
	log.Info("Starting form fill")

	sc, err := s.scan(ctx, pdf, report, log)
	if err != nil {
		return nil, err
	}

	if len(sc.fields) == 0 {
		report.AddWarning("document has no fillable form fields, returned unchanged")
		report.finish()
		return &FillResult{
			PDF:         pdf,
			Descriptors: s.describeCandidates(ctx, sc.candidates),
			Mappings:    []fieldmap.FieldMapping{},
			Report:      report,
		}, nil
	}

	// Map
	start := time.Now()
	hints := fieldmap.HintsFromCandidates(sc.candidates)
	mappings := s.mapper.Map(sc.fields, p, hints)
	report.AddStage("map", start)

	// Annotate
	start = time.Now()
	s.annotate(ctx, sc, mappings)
	applyOverrides(mappings, overrides, report, log)
	report.AddStage("annotate", start)

	for _, m := range mappings {
		if m.IsAutoFilled {
			report.AutoFilled++
		}
	}

	// Commit
	start = time.Now()
	out, commitReport, err := s.writer.Commit(pdf, sc.fields, assignments(mappings))
	if err != nil {
		log.WithStage(logger.StageCommit).WithError(err).Warn("Commit failed, returning document unchanged")
		report.AddWarning("commit failed: %v", err)
		out = pdf
	} else {
		report.Written = commitReport.WrittenCount()
		report.Skipped = append(report.Skipped, commitReport.Skipped...)
	}
	report.AddStage("commit", start)

	descriptors := describeMappings(sc, mappings)
	report.finish()

	log.WithFields(
		"form_fields", report.FormFields,
		"auto_filled", report.AutoFilled,
		"written", report.Written,
		"skipped", len(report.Skipped),
		"duration", report.Duration,
	).Info("Form fill completed")

	return &FillResult{
		PDF:         out,
		Descriptors: descriptors,
		Mappings:    mappings,
		Report:      report,
	}, nil
}

// scan extracts text, detects candidates and reads the structural form.
// Only a conversion failure or a cancelled context is returned as an error.
func (s *Service) scan(ctx context.Context, pdf []byte, report *Report, log *logger.Logger) (*scan, error) {
	sc := &scan{}

	// Step 1: Extract text
	start := time.Now()
	blocks, err := s.extractor.Extract(ctx, pdf)
	if err != nil {
		var convErr *ocr.ConversionError
		if errors.As(err, &convErr) {
			return nil, fmt.Errorf("failed to convert document: %w", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithStage(logger.StageOCR).WithError(err).Warn("Text extraction failed, continuing without candidates")
		report.AddWarning("text extraction failed: %v", err)
		blocks = nil
	}
	sc.blocks = blocks
	report.TextBlocks = len(blocks)
	if sr, ok := s.extractor.(statsReporter); ok {
		stats := sr.LastStats()
		report.TextSource = stats.Source
		report.PageCount = stats.Pages
	}
	report.AddStage("extract", start)

	// Step 2: Detect and refine candidates
	start = time.Now()
	sc.candidates = detect.Refine(s.detector.Detect(blocks), blocks)
	report.CandidateFields = len(sc.candidates)
	report.AddStage("detect", start)
	log.WithStage(logger.StageDetect).WithFields("blocks", len(blocks), "candidates", len(sc.candidates)).Debug("Detected candidate fields")

	// Step 3: Read structural fields
	start = time.Now()
	fields, err := s.reader.Fields(pdf)
	switch {
	case errors.Is(err, pdfform.ErrNoFormFields):
		log.WithStage(logger.StageRead).Debug("Document has no form fields")
	case err != nil:
		return nil, fmt.Errorf("failed to read form fields: %w", err)
	}
	sc.fields = fields
	report.FormFields = len(fields)

	if pages, err := s.reader.PageCount(pdf); err == nil {
		report.PageCount = pages
	} else if report.PageCount == 0 {
		report.PageCount = countPages(blocks)
	}
	report.AddStage("read", start)

	return sc, nil
}

// annotate fills in translation, context hints and required flags
func (s *Service) annotate(ctx context.Context, sc *scan, mappings []fieldmap.FieldMapping) {
	names := make([]string, len(mappings))
	for i, m := range mappings {
		names[i] = m.FieldName
	}
	labels := s.translator.TranslateBatch(ctx, names)

	for i := range mappings {
		m := &mappings[i]
		m.Translation = labels[i]
		m.ContextHints = translate.ContextHints(m.FieldName)
		if c, ok := candidateFor(m.FieldName, sc.candidates); ok {
			m.IsRequired = c.IsRequired
		}

		if s.contextAnalysis && m.NativeType == pdfform.NativeText {
			a := s.translator.Analyze(ctx, m.FieldName, m.FieldType, m.ContextHints)
			m.Translation = a.Label
			if m.FieldType == detect.TypeText && a.Confidence > minTypeHintConfidence {
				m.FieldType = a.TypeHint
			}
		}
	}
}

func applyOverrides(mappings []fieldmap.FieldMapping, overrides map[string]string, report *Report, log *logger.Logger) {
	if len(overrides) == 0 {
		return
	}

	index := make(map[string]int, len(mappings))
	for i, m := range mappings {
		index[strings.ToLower(m.FieldName)] = i
	}

	// Keys differing only in case target the same field; the last in sorted
	// order wins
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := overrides[name]
		i, ok := index[strings.ToLower(name)]
		if !ok {
			report.AddWarning("override for unknown field %q ignored", name)
			continue
		}
		m := &mappings[i]
		m.Value = value
		m.SourcePattern = OverrideSource
		m.IsAutoFilled = false
		log.WithField(m.FieldName).Debug("Applied override")
	}
}

func assignments(mappings []fieldmap.FieldMapping) []pdfform.Assignment {
	out := make([]pdfform.Assignment, 0, len(mappings))
	for _, m := range mappings {
		if m.Value == "" {
			continue
		}
		out = append(out, pdfform.Assignment{Name: m.FieldName, Value: m.Value})
	}
	return out
}

// candidateFor finds the recognized label that names a structural field
func candidateFor(name string, candidates []detect.CandidateField) (detect.CandidateField, bool) {
	lower := strings.ToLower(name)
	for _, c := range candidates {
		cn := strings.ToLower(c.Name)
		if cn == "" {
			continue
		}
		if cn == lower || strings.Contains(lower, cn) || strings.Contains(cn, lower) {
			return c, true
		}
	}
	return detect.CandidateField{}, false
}

func (s *Service) describeFields(ctx context.Context, fields []pdfform.StructuralField) []FieldDescriptor {
	descriptors := make([]FieldDescriptor, len(fields))
	var pending []int
	for i, f := range fields {
		group, label := groupField(f.Name, f.Type)
		descriptors[i] = FieldDescriptor{
			Name:        f.Name,
			Label:       label,
			Key:         fieldKey(f.Name, i),
			Value:       descriptorValue(f.Type, f.Value),
			Type:        descriptorType(f.Type, fieldmap.TypeOf(f)),
			IsPrefilled: f.Value != "",
			Group:       group,
			Options:     f.Options,
		}
		if label == "" {
			pending = append(pending, i)
		}
	}

	s.labelPending(ctx, descriptors, pending)
	uniqueKeys(descriptors)
	return descriptors
}

func (s *Service) describeCandidates(ctx context.Context, candidates []detect.CandidateField) []FieldDescriptor {
	descriptors := make([]FieldDescriptor, len(candidates))
	var pending []int
	for i, c := range candidates {
		native := pdfform.NativeText
		if c.Type == detect.TypeCheckbox {
			native = pdfform.NativeCheckbox
		}
		group, label := groupField(c.Name, native)
		if label == "" {
			label = c.Translation
		}
		descriptors[i] = FieldDescriptor{
			Name:         c.Name,
			Label:        label,
			Key:          fieldKey(c.Name, i),
			Value:        descriptorValue(native, ""),
			Type:         descriptorType(native, c.Type),
			Group:        group,
			Confidence:   int(c.Confidence),
			Context:      c.RawLabel,
			ContextHints: c.ContextHints,
			IsRequired:   c.IsRequired,
		}
		if label == "" {
			pending = append(pending, i)
		}
	}

	s.labelPending(ctx, descriptors, pending)
	uniqueKeys(descriptors)
	return descriptors
}

func describeMappings(sc *scan, mappings []fieldmap.FieldMapping) []FieldDescriptor {
	descriptors := make([]FieldDescriptor, len(mappings))
	for i, m := range mappings {
		f := sc.fields[i]
		group, label := groupField(f.Name, f.Type)
		if label == "" {
			label = m.Translation
		}
		descriptors[i] = FieldDescriptor{
			Name:         f.Name,
			Label:        label,
			Key:          fieldKey(f.Name, i),
			Value:        descriptorValue(f.Type, m.Value),
			Type:         descriptorType(f.Type, m.FieldType),
			IsPrefilled:  m.Value != "",
			Group:        group,
			Options:      f.Options,
			Confidence:   m.Confidence(),
			MatchScore:   m.MatchScore,
			IsAutoFilled: m.IsAutoFilled,
			Source:       m.SourcePattern,
			ContextHints: m.ContextHints,
			IsRequired:   m.IsRequired,
		}
		if c, ok := candidateFor(f.Name, sc.candidates); ok {
			descriptors[i].Context = c.RawLabel
		}
	}
	uniqueKeys(descriptors)
	return descriptors
}

// labelPending translates the names of descriptors without a fixed label
func (s *Service) labelPending(ctx context.Context, descriptors []FieldDescriptor, pending []int) {
	if len(pending) == 0 {
		return
	}
	names := make([]string, len(pending))
	for i, idx := range pending {
		names[i] = descriptors[idx].Name
	}
	labels := s.translator.TranslateBatch(ctx, names)
	for i, idx := range pending {
		descriptors[idx].Label = labels[i]
	}
}

func countPages(blocks []ocr.TextBlock) int {
	pages := 0
	for _, b := range blocks {
		if b.Page > pages {
			pages = b.Page
		}
	}
	return pages
}
