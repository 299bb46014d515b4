// Package pipeline sequences one product analysis end to end:
// reset the evidence index, ingest the product's evidence, plan, retrieve,
// analyze images, summarize, judge, and score. Stages run strictly in
// order because each consumes the previous stage's output, and a run is
// all-or-nothing: any stage failure aborts with the originating stage
// identified.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sage-engine/sage/internal/agents"
	"github.com/sage-engine/sage/internal/config"
	"github.com/sage-engine/sage/internal/index"
	"github.com/sage-engine/sage/internal/manual"
	"github.com/sage-engine/sage/internal/schema"
	"github.com/sage-engine/sage/internal/search"
	"github.com/sage-engine/sage/internal/tcs"
)

// Stage identifies one step of the analysis run.
type Stage string

const (
	StageReset        Stage = "reset"
	StageIngest       Stage = "ingest"
	StagePlan         Stage = "plan"
	StageRetrieve     Stage = "retrieve"
	StageImageAnalyze Stage = "image_analyze"
	StageSummarize    Stage = "summarize"
	StageJudge        Stage = "judge"
	StageScore        Stage = "score"
)

// StageError names the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Runner owns the analysis state machine. The evidence index is the one
// shared mutable resource, so the whole clear-populate-query sequence for
// a run is a critical section: runs execute one at a time.
type Runner struct {
	mu sync.Mutex

	store      index.Store
	planner    *agents.Planner
	retriever  *agents.Retriever
	vision     *agents.Vision
	summarizer *agents.Summarizer
	judge      *agents.Judge
	search     *search.Client

	cfg config.Config
	log *slog.Logger
}

func NewRunner(store index.Store, planner *agents.Planner, retriever *agents.Retriever, vision *agents.Vision, summarizer *agents.Summarizer, judge *agents.Judge, searcher *search.Client, cfg config.Config, log *slog.Logger) *Runner {
	return &Runner{
		store:      store,
		planner:    planner,
		retriever:  retriever,
		vision:     vision,
		summarizer: summarizer,
		judge:      judge,
		search:     searcher,
		cfg:        cfg,
		log:        log,
	}
}

// Run analyzes one product. Every run starts from a cleared index; the
// run id stamped into each ingested unit partitions retrieval as a second
// guard against cross-run leakage.
func (r *Runner) Run(ctx context.Context, pc schema.ProductContext) (*schema.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	log := r.log.With("product_id", pc.ProductID, "run_id", runID)
	log.Info("starting analysis", "url", pc.URL)

	if err := r.store.ClearAll(ctx); err != nil {
		return nil, &StageError{Stage: StageReset, Err: err}
	}

	docs, err := r.buildDocuments(ctx, pc, runID, log)
	if err != nil {
		return nil, &StageError{Stage: StageIngest, Err: err}
	}
	if err := r.store.Add(ctx, docs); err != nil {
		return nil, &StageError{Stage: StageIngest, Err: err}
	}
	log.Info("evidence ingested", "documents", len(docs))

	plan, err := r.planner.Plan(ctx, pc)
	if err != nil {
		return nil, &StageError{Stage: StagePlan, Err: err}
	}

	retrieval, err := r.retriever.Retrieve(ctx, pc, plan, map[string]string{"run_id": runID})
	if err != nil {
		return nil, &StageError{Stage: StageRetrieve, Err: err}
	}
	evidence := retrieval.Evidence
	log.Info("evidence retrieved", "units", len(evidence))

	if len(pc.Images) > 0 {
		vision, err := r.vision.ProcessImages(ctx, pc)
		if err != nil {
			return nil, &StageError{Stage: StageImageAnalyze, Err: err}
		}
		if len(vision.SpecsDetected) > 0 {
			evidence = append(evidence, schema.RankedEvidence{
				EvidenceID: "vlm_1",
				Text:       "Specs from image: " + strings.Join(vision.SpecsDetected, ", "),
				SourceType: string(schema.SourceVLMImage),
				AspectTags: []string{"specs"},
			})
		}
	}

	summary, err := r.summarizer.Summarize(ctx, pc.ProductID, evidence)
	if err != nil {
		return nil, &StageError{Stage: StageSummarize, Err: err}
	}

	judged, err := r.judge.Judge(ctx, summary, evidence)
	if err != nil {
		return nil, &StageError{Stage: StageJudge, Err: err}
	}

	components := tcs.Compute(judged, summary, evidence, aspectVocabulary(summary))
	log.Info("analysis complete", "tcs_score", components.TCSScore, "band", components.Band)

	return &schema.AnalysisResult{
		ProductID:     pc.ProductID,
		TCSScore:      components.TCSScore,
		TCSBand:       components.Band,
		TCSComponents: components,
		TrustSummary:  summary,
		Diagnostics:   retrieval.Diagnostics,
	}, nil
}

// buildDocuments assembles the run's raw documents: the page markup
// (capped), structured sections, an uploaded manual, and optionally
// externally discovered threads and videos.
func (r *Runner) buildDocuments(ctx context.Context, pc schema.ProductContext, runID string, log *slog.Logger) ([]schema.RawDocument, error) {
	base := map[string]string{
		"run_id":     runID,
		"url":        pc.URL,
		"product_id": pc.ProductID,
	}

	var docs []schema.RawDocument

	if pc.PDPHTML != "" {
		meta := cloneMeta(base)
		if title, ok := pc.Metadata["title"].(string); ok {
			meta["title"] = title
		}
		docs = append(docs, schema.RawDocument{
			Text:       capRunes(pc.PDPHTML, r.cfg.MaxPDPChars),
			SourceType: schema.SourcePDP,
			ProductID:  pc.ProductID,
			Metadata:   meta,
		})
	}

	for _, section := range sortedKeys(pc.StructuredContent) {
		content := pc.StructuredContent[section]
		if content == "" {
			continue
		}
		meta := cloneMeta(base)
		meta["section"] = section
		meta["priority"] = "high"
		docs = append(docs, schema.RawDocument{
			Text:       fmt.Sprintf("%s: %s", titleCase(section), content),
			SourceType: schema.SourceStructuredContent,
			ProductID:  pc.ProductID,
			Metadata:   meta,
		})
	}

	if len(pc.ManualPDF) > 0 {
		text, err := manual.ExtractText(pc.ManualPDF)
		if err != nil {
			return nil, fmt.Errorf("extract manual text: %w", err)
		}
		meta := cloneMeta(base)
		meta["priority"] = "high"
		docs = append(docs, schema.RawDocument{
			Text:       text,
			SourceType: schema.SourcePDFText,
			ProductID:  pc.ProductID,
			Metadata:   meta,
		})
	}

	if r.cfg.ExternalSearchEnabled && r.search != nil {
		docs = append(docs, r.discoverExternal(ctx, pc, base, log)...)
	}

	return docs, nil
}

// discoverExternal is best-effort: discovery failures are logged, never
// fatal, since the primary page evidence is already in hand.
func (r *Runner) discoverExternal(ctx context.Context, pc schema.ProductContext, base map[string]string, log *slog.Logger) []schema.RawDocument {
	query := pc.ProductID
	if title, ok := pc.Metadata["title"].(string); ok && title != "" {
		query = title
	}

	var docs []schema.RawDocument

	posts, err := r.search.SearchReddit(ctx, query, 5)
	if err != nil {
		log.Warn("reddit discovery failed", "error", err)
	}
	for _, post := range posts {
		meta := cloneMeta(base)
		meta["discovered_url"] = post.URL
		docs = append(docs, schema.RawDocument{
			SourceType: schema.SourceReddit,
			ProductID:  pc.ProductID,
			Thread:     &schema.RedditThread{Title: post.Title, Selftext: post.Text},
			Metadata:   meta,
		})
	}

	videos, err := r.search.SearchYouTube(ctx, query, 3)
	if err != nil {
		log.Warn("youtube discovery failed", "error", err)
	}
	for _, video := range videos {
		meta := cloneMeta(base)
		meta["discovered_url"] = video.URL
		docs = append(docs, schema.RawDocument{
			Text:       fmt.Sprintf("%s: %s", video.Title, video.Text),
			SourceType: schema.SourceYouTube,
			ProductID:  pc.ProductID,
			Metadata:   meta,
		})
	}

	return docs
}

// aspectVocabulary is the aspect names the summary produced, or a single
// default aspect when it produced none.
func aspectVocabulary(summary schema.TrustSummary) []string {
	if len(summary.Aspects) == 0 {
		return []string{"general"}
	}
	names := make([]string, len(summary.Aspects))
	for i, a := range summary.Aspects {
		names[i] = a.Name
	}
	return names
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func cloneMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic ingest order keeps runs reproducible.
	sort.Strings(keys)
	return keys
}

// titleCase renders a snake_case section name as a heading:
// "whats_in_the_box" -> "Whats In The Box".
func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
