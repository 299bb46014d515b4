package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sage-engine/sage/internal/agents"
	"github.com/sage-engine/sage/internal/pipeline"
	"github.com/sage-engine/sage/internal/schema"
)

const maxManualBytes = 20 << 20

// handleAnalyze runs one full analysis. The body is either a JSON
// analyze request, or multipart form data with the same JSON under
// "request" plus an optional product manual PDF under "manual".
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, manualPDF, err := s.decodeAnalyzeRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pc, err := s.resolveContext(r, req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	pc.UserQuestion = req.UserQuestion
	pc.ManualPDF = manualPDF

	result, err := s.runner.Run(r.Context(), pc)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleScrape extracts a product context from a URL without running the
// analysis, so callers can inspect or amend it before submitting.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(req.URL, "http") {
		jsonError(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
		return
	}

	pc, err := s.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pc)
}

type analyzeRequest struct {
	URL            string                 `json:"url"`
	UserQuestion   string                 `json:"user_question"`
	ProductContext *schema.ProductContext `json:"product_context,omitempty"`
}

func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (analyzeRequest, []byte, error) {
	var req analyzeRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxManualBytes+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return req, nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		if err := json.Unmarshal([]byte(r.FormValue("request")), &req); err != nil {
			return req, nil, fmt.Errorf("invalid request field: %w", err)
		}

		var manualPDF []byte
		if file, _, err := r.FormFile("manual"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxManualBytes+1))
			if err != nil {
				return req, nil, fmt.Errorf("read manual: %w", err)
			}
			if len(data) > maxManualBytes {
				return req, nil, fmt.Errorf("manual exceeds max size (%d bytes)", maxManualBytes)
			}
			manualPDF = data
		}
		return req, manualPDF, s.checkAnalyzeRequest(req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, nil, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil, s.checkAnalyzeRequest(req)
}

func (s *Server) checkAnalyzeRequest(req analyzeRequest) error {
	if req.ProductContext == nil && !strings.HasPrefix(req.URL, "http") {
		return fmt.Errorf("either product_context or an absolute url is required")
	}
	return nil
}

// resolveContext uses the caller-supplied context when present, filling
// in identity fields the caller omitted, and scrapes otherwise.
func (s *Server) resolveContext(r *http.Request, req analyzeRequest) (schema.ProductContext, error) {
	if req.ProductContext == nil {
		return s.scraper.Scrape(r.Context(), req.URL)
	}

	pc := *req.ProductContext
	if pc.URL == "" {
		pc.URL = req.URL
	}
	if pc.ProductID == "" {
		pc.ProductID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(pc.URL)).String()
	}
	if pc.Timestamp == "" {
		pc.Timestamp = time.Now().Format(time.RFC3339)
	}
	return pc, nil
}

// writeRunError maps a pipeline failure to a status code: collaborator
// and decode failures are upstream problems, everything else is ours.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	s.log.Error("analysis failed", "error", err)

	status := http.StatusInternalServerError
	var upstream *agents.UpstreamError
	var parse *schema.ParseError
	if errors.As(err, &upstream) || errors.As(err, &parse) {
		status = http.StatusBadGateway
	}

	var stage *pipeline.StageError
	if errors.As(err, &stage) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
			"stage": string(stage.Stage),
		})
		return
	}
	jsonError(w, err.Error(), status)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
