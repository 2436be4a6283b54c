package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
	"github.com/platinummonkey/formpilot/internal/pdfform"
	"github.com/platinummonkey/formpilot/internal/profile"
)

type mockPipeline struct {
	err          error
	gotProfile   *profile.Profile
	gotOverrides map[string]string
}

func (m *mockPipeline) Analyze(ctx context.Context, pdf []byte) (*formfill.Analysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	report := formfill.NewReport(formfill.ModeAnalyze)
	report.PageCount = 1
	return &formfill.Analysis{
		Fields: []pdfform.StructuralField{{Name: "Vorname", Type: pdfform.NativeText}},
		Descriptors: []formfill.FieldDescriptor{
			{Name: "Vorname", Label: "Child First Name", Key: "vorname", Value: "", Type: "text", Group: formfill.GroupChild},
		},
		Report: report,
	}, nil
}

func (m *mockPipeline) Fill(ctx context.Context, pdf []byte, p *profile.Profile, overrides map[string]string) (*formfill.FillResult, error) {
	m.gotProfile = p
	m.gotOverrides = overrides
	if m.err != nil {
		return nil, m.err
	}
	report := formfill.NewReport(formfill.ModeFill)
	report.AutoFilled = 1
	report.Written = 1
	report.Skipped = []pdfform.Skipped{{Name: "Geschlecht", Reason: pdfform.SkipNoOption}}
	return &formfill.FillResult{
		PDF: []byte("%PDF-filled"),
		Descriptors: []formfill.FieldDescriptor{
			{Name: "Vorname", Label: "Child First Name", Key: "vorname", Value: "Lena", Type: "text", IsAutoFilled: true, Confidence: 100},
		},
		Report: report,
	}, nil
}

type mockLabeler struct{}

func (mockLabeler) TranslateBatch(ctx context.Context, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}

func newTestServer(t *testing.T, p Pipeline) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Pipeline:    p,
		Labeler:     mockLabeler{},
		Logger:      logger.NewNop(),
		MaxUploadMB: 1,
		Version:     "test",
	})
	require.NoError(t, err)
	return s
}

func multipartRequest(t *testing.T, path string, parts map[string]string, pdf []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if pdf != nil {
		fw, err := mw.CreateFormFile("pdf", "form.pdf")
		require.NoError(t, err)
		_, err = fw.Write(pdf)
		require.NoError(t, err)
	}
	for name, value := range parts {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)

	s, err := NewServer(Config{Pipeline: &mockPipeline{}})
	require.NoError(t, err)
	assert.Equal(t, "*", s.corsOrigin)
	assert.Equal(t, int64(defaultMaxUploadMB), s.maxUploadMB)
}

func TestServer_HealthHandler(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.expectedStatus == http.StatusOK {
				var resp HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "healthy", resp.Status)
				assert.Equal(t, "test", resp.Version)
				assert.NotEmpty(t, resp.Time)
			}
		})
	}
}

func TestServer_Middleware(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/fill", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("generated request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(requestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("propagated request id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, id)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(requestIDHeader))
	})
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "formpilot_http_requests_total")
}

func TestServer_AnalyzeHandler(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	req := multipartRequest(t, "/analyze", nil, []byte("%PDF-1.7"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ProcessingID)
	assert.Equal(t, 1, resp.TotalFields)
	assert.Equal(t, 1, resp.Pages)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "Child First Name", resp.Fields[0].Label)
	assert.Equal(t, formfill.GroupChild, resp.Fields[0].Group)
}

func TestServer_AnalyzeHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		pipeline       *mockPipeline
		method         string
		pdf            []byte
		expectedStatus int
	}{
		{"method not allowed", &mockPipeline{}, http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"missing pdf", &mockPipeline{}, http.MethodPost, nil, http.StatusBadRequest},
		{"empty pdf", &mockPipeline{}, http.MethodPost, []byte{}, http.StatusBadRequest},
		{"too large", &mockPipeline{}, http.MethodPost, bytes.Repeat([]byte("x"), 2*1024*1024), http.StatusRequestEntityTooLarge},
		{
			"conversion failure",
			&mockPipeline{err: &ocr.ConversionError{Page: 1, Err: errors.New("bad page")}},
			http.MethodPost, []byte("%PDF"), http.StatusUnprocessableEntity,
		},
		{"processing failure", &mockPipeline{err: errors.New("boom")}, http.MethodPost, []byte("%PDF"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.pipeline)

			var req *http.Request
			if tt.method == http.MethodPost {
				req = multipartRequest(t, "/analyze", nil, tt.pdf)
			} else {
				req = httptest.NewRequest(tt.method, "/analyze", nil)
			}
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_FillHandler_JSON(t *testing.T) {
	mp := &mockPipeline{}
	s := newTestServer(t, mp)

	req := multipartRequest(t, "/fill", map[string]string{
		"profile":   `{"first_name":"Anna","children":[{"first_name":"Lena"}]}`,
		"overrides": `{"Bemerkungen":"Brille"}`,
	}, []byte("%PDF-1.7"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp FillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []byte("%PDF-filled"), resp.PDF)
	assert.Equal(t, 1, resp.AutoFilled)
	assert.Equal(t, 1, resp.Written)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, pdfform.SkipNoOption, resp.Skipped[0].Reason)

	require.NotNil(t, mp.gotProfile)
	assert.Equal(t, "Anna", mp.gotProfile.FirstName)
	assert.Equal(t, "Lena", mp.gotProfile.FirstChild().FirstName)
	assert.Equal(t, map[string]string{"Bemerkungen": "Brille"}, mp.gotOverrides)
}

func TestServer_FillHandler_PDF(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	req := multipartRequest(t, "/fill?format=pdf", map[string]string{
		"profile": `{"first_name":"Anna"}`,
	}, []byte("%PDF-1.7"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Processing-ID"))
	assert.Equal(t, "%PDF-filled", w.Body.String())
}

func TestServer_FillHandler_Errors(t *testing.T) {
	tests := []struct {
		name  string
		parts map[string]string
	}{
		{"missing profile", nil},
		{"invalid profile", map[string]string{"profile": "{not json"}},
		{"invalid overrides", map[string]string{"profile": `{}`, "overrides": "[1,2]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &mockPipeline{})
			req := multipartRequest(t, "/fill", tt.parts, []byte("%PDF-1.7"))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServer_TranslateHandler(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	body := strings.NewReader(`{"names":["vorname_kind","plz"]}`)
	req := httptest.NewRequest(http.MethodPost, "/translate", body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"VORNAME_KIND", "PLZ"}, resp.Labels)
	require.Len(t, resp.Hints, 2)
	assert.Contains(t, resp.Hints[0], "child-context")
	assert.Contains(t, resp.Hints[1], "address-context")
}

func TestServer_TranslateHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"empty", `{"names":[]}`, http.StatusBadRequest},
		{"too many", `{"names":[` + strings.TrimSuffix(strings.Repeat(`"a",`, maxTranslateNames+1), ",") + `]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &mockPipeline{})
			req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	s, err := NewServer(Config{Pipeline: &mockPipeline{}, Logger: logger.NewNop()})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"names":["a"]}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
