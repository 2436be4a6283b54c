package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
	"github.com/platinummonkey/formpilot/internal/profile"
	"github.com/platinummonkey/formpilot/internal/translate"
)

const formatPDF = "pdf"

// healthHandler returns server health status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// analyzeHandler lists the fields of an uploaded PDF
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pdf, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	start := time.Now()
	analysis, err := s.pipeline.Analyze(r.Context(), pdf)
	processingDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		documentsTotal.WithLabelValues("analyze", "error").Inc()
		s.writePipelineError(w, r, err)
		return
	}
	documentsTotal.WithLabelValues("analyze", "success").Inc()
	formFieldsDetected.WithLabelValues("analyze").Observe(float64(len(analysis.Fields)))

	resp := AnalyzeResponse{
		Success:     true,
		Fields:      analysis.Descriptors,
		TotalFields: len(analysis.Descriptors),
	}
	if analysis.Report != nil {
		resp.ProcessingID = analysis.Report.ProcessingID
		resp.Pages = analysis.Report.PageCount
		resp.Warnings = analysis.Report.Warnings
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// fillHandler fills an uploaded PDF from a profile
func (s *Server) fillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pdf, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	profileData, err := formPart(r, "profile")
	if err != nil || len(profileData) == 0 {
		s.writeErrorResponse(w, "No profile provided", http.StatusBadRequest)
		return
	}
	p, err := profile.Parse(profileData)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid profile: %v", err), http.StatusBadRequest)
		return
	}

	var overrides map[string]string
	if data, err := formPart(r, "overrides"); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &overrides); err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Invalid overrides: %v", err), http.StatusBadRequest)
			return
		}
	}

	start := time.Now()
	result, err := s.pipeline.Fill(r.Context(), pdf, p, overrides)
	processingDuration.WithLabelValues("fill").Observe(time.Since(start).Seconds())
	if err != nil {
		documentsTotal.WithLabelValues("fill", "error").Inc()
		s.writePipelineError(w, r, err)
		return
	}
	documentsTotal.WithLabelValues("fill", "success").Inc()
	formFieldsDetected.WithLabelValues("fill").Observe(float64(len(result.Mappings)))

	resp := FillResponse{
		Success: true,
		PDF:     result.PDF,
		Fields:  result.Descriptors,
	}
	if rep := result.Report; rep != nil {
		resp.ProcessingID = rep.ProcessingID
		resp.AutoFilled = rep.AutoFilled
		resp.Written = rep.Written
		resp.Skipped = rep.Skipped
		resp.Warnings = rep.Warnings
		fieldsAutoFilled.Observe(float64(rep.AutoFilled))
		for _, sk := range rep.Skipped {
			fieldsSkippedTotal.WithLabelValues(string(sk.Reason)).Inc()
		}
	}

	if outputFormat(r) == formatPDF {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="filled.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
		if resp.ProcessingID != "" {
			w.Header().Set("X-Processing-ID", resp.ProcessingID)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.PDF); err != nil {
			s.logger.WithError(err).Warn("Failed to write PDF response")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// translateHandler translates a list of field names
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.labeler == nil {
		s.writeErrorResponse(w, "Translation not available", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Names) == 0 {
		s.writeErrorResponse(w, "No field names provided", http.StatusBadRequest)
		return
	}
	if len(req.Names) > maxTranslateNames {
		s.writeErrorResponse(w, fmt.Sprintf("Too many field names (maximum %d)", maxTranslateNames), http.StatusBadRequest)
		return
	}

	hints := make([][]string, len(req.Names))
	for i, name := range req.Names {
		hints[i] = translate.ContextHints(name)
	}
	labels := s.labeler.TranslateBatch(r.Context(), req.Names)
	labelsTranslatedTotal.Add(float64(len(req.Names)))

	s.writeJSON(w, http.StatusOK, TranslateResponse{
		Success: true,
		Labels:  labels,
		Hints:   hints,
	})
}

// readUpload parses the multipart body and returns the "pdf" part. On
// failure the error response has been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, false
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read PDF data", http.StatusInternalServerError)
		return nil, false
	}
	if len(data) == 0 {
		s.writeErrorResponse(w, "Empty PDF file", http.StatusBadRequest)
		return nil, false
	}

	uploadSizeBytes.Observe(float64(len(data)))
	return data, true
}

// formPart returns a multipart value, either uploaded as a file or sent as
// a plain form field
func formPart(r *http.Request, name string) ([]byte, error) {
	if file, _, err := r.FormFile(name); err == nil {
		defer func() { _ = file.Close() }()
		return io.ReadAll(file)
	}
	return []byte(r.FormValue(name)), nil
}

func outputFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	return strings.ToLower(format)
}

// writePipelineError maps pipeline failures to status codes
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), s.logger).WithError(err).Error("Document processing failed")

	var convErr *ocr.ConversionError
	switch {
	case errors.As(err, &convErr):
		s.writeErrorResponse(w, fmt.Sprintf("Document could not be converted: %v", err), http.StatusUnprocessableEntity)
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		s.writeErrorResponse(w, "Request cancelled", http.StatusRequestTimeout)
	default:
		s.writeErrorResponse(w, fmt.Sprintf("Processing failed: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

// writeErrorResponse writes a JSON error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

// Compile-time check that the pipeline service satisfies the interfaces
var (
	_ Pipeline = (*formfill.Service)(nil)
	_ Labeler  = (*translate.Translator)(nil)
)
