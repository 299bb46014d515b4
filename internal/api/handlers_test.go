package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-engine/sage/internal/agents"
	"github.com/sage-engine/sage/internal/config"
	"github.com/sage-engine/sage/internal/embedding"
	"github.com/sage-engine/sage/internal/index"
	"github.com/sage-engine/sage/internal/pipeline"
	"github.com/sage-engine/sage/internal/scraper"
	"github.com/sage-engine/sage/internal/schema"
)

type cannedTransport struct {
	resp string
	err  error
}

func (c *cannedTransport) Complete(context.Context, string, string) (string, error) {
	return c.resp, c.err
}

type agentScript struct {
	planner    *cannedTransport
	summarizer *cannedTransport
	judge      *cannedTransport
}

func newTestServer(t *testing.T) (*Server, *agentScript) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	registry := embedding.NewRegistry()
	registry.Register(embedding.ProfilePrimary, embedding.NewPlaceholder(32))
	store := index.NewMemory(registry, embedding.ProfilePrimary, log)

	script := &agentScript{
		planner:    &cannedTransport{resp: `{"mode":"single_product","aspects":["battery"]}`},
		summarizer: &cannedTransport{resp: `{"product_id":"p1","overall_verdict":"fine","aspects":[{"name":"battery","score_0_10":7,"pros":[],"cons":[],"dealbreakers":[]}],"claims":["Battery holds up"],"conflicts":[],"uncertainties":[]}`},
		judge:      &cannedTransport{resp: `{"claims_judgement":[{"claim_text":"Battery holds up","evidence_ids":["ev_1"],"judge_label":"Supported","reasoning":""}],"conflicts":[],"uncertainty_aspects":[]}`},
	}
	retrieverLLM := &cannedTransport{resp: `{"evidence":[{"evidence_id":"ev_1","text":"Battery holds up"}],"diagnostics":{}}`}
	visionLLM := &cannedTransport{resp: `{"captions":[],"specs_detected":[],"model_strings":[],"ports":[],"confidence_scores":{}}`}

	cfg := config.Config{APIKey: "secret", MaxPDPChars: 50000}

	runner := pipeline.NewRunner(
		store,
		agents.NewPlanner(script.planner, log),
		agents.NewRetriever(retrieverLLM, store, log),
		agents.NewVision(visionLLM, log),
		agents.NewSummarizer(script.summarizer, log),
		agents.NewJudge(script.judge, log),
		nil,
		cfg,
		log,
	)

	scr := scraper.New(time.Second, time.Minute)
	return NewServer(runner, scr, log, cfg), script
}

func analyzeBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"user_question": "how is the battery?",
		"product_context": schema.ProductContext{
			ProductID: "p1",
			URL:       "http://example.com/x1",
			PDPHTML:   "<p>Battery holds up well over months.</p>",
		},
	})
	require.NoError(t, err)
	return string(body)
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(t)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(t)))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeFullRun(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(t)))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result schema.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "p1", result.ProductID)
	assert.Greater(t, result.TCSScore, 0.0)
	assert.NotEmpty(t, result.TCSBand)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []string{
		"not json",
		`{}`,
		`{"url":"ftp://example.com"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestAnalyzeUpstreamFailureIsBadGateway(t *testing.T) {
	srv, script := newTestServer(t)
	script.planner.err = errors.New("model overloaded")

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(t)))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "plan", errResp["stage"])
}

func TestAnalyzeUndecodableCollaboratorIsBadGateway(t *testing.T) {
	srv, script := newTestServer(t)
	script.judge.resp = "definitely not json"

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(t)))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScrapeEndpoint(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Acme X1"></head><body></body></html>`))
	}))
	defer page.Close()

	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"url": page.URL})
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var pc schema.ProductContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pc))
	assert.NotEmpty(t, pc.ProductID)
	assert.Equal(t, "Acme X1", pc.Metadata["title"])
}

func TestScrapeRejectsRelativeURL(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"url":"/relative"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
