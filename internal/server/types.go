package server

import (
	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/pdfform"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AnalyzeResponse is returned by /analyze
type AnalyzeResponse struct {
	Success      bool                       `json:"success"`
	ProcessingID string                     `json:"processingId"`
	Fields       []formfill.FieldDescriptor `json:"formFields"`
	TotalFields  int                        `json:"totalFields"`
	Pages        int                        `json:"pages"`
	Warnings     []string                   `json:"warnings,omitempty"`
}

// FillResponse is returned by /fill in JSON mode. PDF is base64 encoded.
type FillResponse struct {
	Success      bool                       `json:"success"`
	ProcessingID string                     `json:"processingId"`
	PDF          []byte                     `json:"pdf"`
	Fields       []formfill.FieldDescriptor `json:"formFields"`
	AutoFilled   int                        `json:"autoFilled"`
	Written      int                        `json:"written"`
	Skipped      []pdfform.Skipped          `json:"skipped,omitempty"`
	Warnings     []string                   `json:"warnings,omitempty"`
}

// TranslateRequest is accepted by /translate
type TranslateRequest struct {
	Names []string `json:"names"`
}

// TranslateResponse is returned by /translate
type TranslateResponse struct {
	Success bool       `json:"success"`
	Labels  []string   `json:"labels"`
	Hints   [][]string `json:"hints"`
}
