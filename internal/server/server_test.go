package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/internal/auth"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
	"github.com/joseph-ayodele/roster-scan/internal/repository"
	"github.com/joseph-ayodele/roster-scan/internal/usage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var pngImage = base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 24)...))

type fakeScanner struct {
	questions *entity.QuestionsResult
	process   *entity.ProcessResult
	err       error
	delay     time.Duration
	calls     int
	lastMIME  string
	lastIn    pipeline.FilterInput
}

func (f *fakeScanner) wait(ctx context.Context) error {
	f.calls++
	if f.delay == 0 {
		return f.err
	}
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeScanner) Questions(ctx context.Context, _ []byte, mimeType string) (*entity.QuestionsResult, error) {
	f.lastMIME = mimeType
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.questions, nil
}

func (f *fakeScanner) Filter(ctx context.Context, in pipeline.FilterInput) (*entity.ProcessResult, error) {
	f.lastIn = in
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.process, nil
}

func (f *fakeScanner) Process(ctx context.Context, _ pipeline.LegacyInput) (*entity.ProcessResult, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.process, nil
}

type harness struct {
	handler http.Handler
	scanner *fakeScanner
	store   repository.Store
}

func newHarness(t *testing.T, scanLimit int, mutate func(*common.ServerConfig)) *harness {
	t.Helper()
	drv, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	store := repository.NewSQLStore(drv, nil)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	cfg := common.ServerConfig{
		RequestTimeout: 2 * time.Second,
		MaxImageBytes:  1 << 10,
		AllowedOrigins: []string{"https://app.example.com"},
		PreviewSuffix:  ".vercel.app",
		PreviewMarker:  "roster",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	scanner := &fakeScanner{
		questions: &entity.QuestionsResult{Success: true, Questions: []entity.SmartQuestion{{ID: "person_select", Question: "Who?"}}},
		process:   &entity.ProcessResult{Success: true, Shifts: []entity.ParsedShift{{ID: "s1", Date: "2026-10-19"}}},
	}
	srv := New(Deps{
		Config:   cfg,
		Scanner:  scanner,
		Governor: usage.NewGovernor(store, scanLimit, nil),
		Audit:    store,
		Verifier: auth.NewStaticVerifier(map[string]string{"tok": "user-1"}),
	})
	return &harness{handler: srv.Handler(), scanner: scanner, store: store}
}

func (h *harness) do(t *testing.T, method, origin string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestPreflight(t *testing.T) {
	h := newHarness(t, 5, nil)

	w, _ := h.do(t, http.MethodOptions, "https://app.example.com", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	w, body := h.do(t, http.MethodOptions, "https://evil.example.org", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "auth", body["errorType"])
	assert.Equal(t, "origin not allowed", body["error"])
}

func TestScan_Unauthenticated(t *testing.T) {
	h := newHarness(t, 5, nil)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"phase":"questions"}`))
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "auth", body["errorType"])
	assert.NotEmpty(t, body["requestId"])
	assert.Equal(t, body["requestId"], w.Header().Get("X-Request-ID"))
}

func TestScan_UnknownPhase(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, body := h.do(t, http.MethodPost, "", map[string]any{"phase": "later"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", body["errorType"])
	assert.Equal(t, false, body["success"])
}

func TestScan_MethodNotAllowed(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, _ := h.do(t, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestScan_QuestionsConsumesQuotaAndAudits(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, body := h.do(t, http.MethodPost, "https://roster-git-main.vercel.app", map[string]any{
		"phase":       "questions",
		"imageBase64": pngImage,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["scansUsed"])
	assert.Equal(t, float64(5), body["scanLimit"])
	assert.NotEmpty(t, body["requestId"])
	assert.Contains(t, body, "processingTimeMs")
	assert.Len(t, body["questions"], 1)
	assert.Equal(t, "image/png", h.scanner.lastMIME)

	recs, err := h.store.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "questions", recs[0].Phase)
	assert.Equal(t, 1, recs[0].QuestionCnt)
	assert.Equal(t, body["requestId"], recs[0].RequestID)
}

func TestScan_QuotaExceeded(t *testing.T) {
	h := newHarness(t, 1, nil)
	req := map[string]any{"imageBase64": pngImage}

	w, _ := h.do(t, http.MethodPost, "", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := h.do(t, http.MethodPost, "", req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "limit_exceeded", body["errorType"])
	assert.Equal(t, float64(1), body["scansUsed"])
	assert.Equal(t, float64(1), body["scanLimit"])
	assert.Equal(t, 1, h.scanner.calls)
}

func TestScan_ImageTooLarge(t *testing.T) {
	h := newHarness(t, 5, func(c *common.ServerConfig) { c.MaxImageBytes = 16 })
	w, body := h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": pngImage})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "invalid_input", body["errorType"])
	assert.Equal(t, 0, h.scanner.calls)
}

func TestScan_InvalidImage(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, _ := h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": "%%%"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	text := base64.StdEncoding.EncodeToString([]byte("just some text"))
	w, _ = h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": text})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScan_DataURLMime(t *testing.T) {
	h := newHarness(t, 5, nil)
	heic := base64.StdEncoding.EncodeToString([]byte("not-sniffable-heic-bytes"))
	w, _ := h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": "data:image/heic;base64," + heic})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/heic", h.scanner.lastMIME)
}

func TestScan_FilterDoesNotConsumeQuota(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, body := h.do(t, http.MethodPost, "", map[string]any{"phase": "filter"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "ocrData")

	w, body = h.do(t, http.MethodPost, "", map[string]any{
		"phase":   "filter",
		"ocrData": map[string]any{"contentType": "table", "rawText": "x"},
		"answers": []map[string]any{{"questionId": "person_select", "value": "Ana"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, body["shifts"], 1)
	assert.NotContains(t, body, "scansUsed")

	_, err := h.store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScan_FilterForwardsPreAnalysisAndPadsRows(t *testing.T) {
	h := newHarness(t, 5, nil)
	w, _ := h.do(t, http.MethodPost, "", map[string]any{
		"phase": "filter",
		"ocrData": map[string]any{
			"contentType": "table",
			"headers":     []string{"Date", "Ana", "Ben"},
			"rows":        [][]string{{"15/01", "9-5"}, {"16/01"}},
		},
		"preAnalysis": map[string]any{"detectedPerson": "Ana", "dateFormat": "DD/MM"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	in := h.scanner.lastIn
	require.NotNil(t, in.PreAnalysis)
	assert.Equal(t, "Ana", in.PreAnalysis.DetectedPerson)
	assert.Equal(t, [][]string{{"15/01", "9-5", ""}, {"16/01", "", ""}}, in.Content.Rows)
}

func TestScan_LegacyIncludesQuota(t *testing.T) {
	h := newHarness(t, 3, nil)
	w, body := h.do(t, http.MethodPost, "", map[string]any{"imageBase64": pngImage, "identifier": "Ana"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), body["scansUsed"])
	assert.Equal(t, float64(3), body["scanLimit"])
}

func TestScan_ModelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		errorTyp string
	}{
		{"model not found", &llm.ModelError{Status: 404, Model: "m"}, http.StatusBadGateway, "config"},
		{"provider auth", &llm.ModelError{Status: 403}, http.StatusBadGateway, "auth"},
		{"provider outage", &llm.ModelError{Status: 503}, http.StatusBadGateway, "network"},
		{"provider rate limit", &llm.ModelError{Status: 429}, http.StatusBadGateway, "unknown"},
		{"transport timeout", &llm.ModelError{Timeout: true}, http.StatusGatewayTimeout, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 5, nil)
			h.scanner.err = tt.err
			w, body := h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": pngImage})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.errorTyp, body["errorType"])

			q, err := h.store.Get(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, 0, q.ScansUsedThisPeriod)
		})
	}
}

func TestScan_OverallTimeout(t *testing.T) {
	h := newHarness(t, 5, func(c *common.ServerConfig) { c.RequestTimeout = 20 * time.Millisecond })
	h.scanner.delay = time.Second
	w, body := h.do(t, http.MethodPost, "", map[string]any{"phase": "questions", "imageBase64": pngImage})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", body["errorType"])
}

func TestScan_RateLimited(t *testing.T) {
	h := newHarness(t, 100, func(c *common.ServerConfig) { c.RateLimitPerMinute = 1 })
	w, _ := h.do(t, http.MethodPost, "", map[string]any{"imageBase64": pngImage})
	require.Equal(t, http.StatusOK, w.Code)
	w, body := h.do(t, http.MethodPost, "", map[string]any{"imageBase64": pngImage})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "limit_exceeded", body["errorType"])
}
