package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sage-engine/sage/internal/index"
	"github.com/sage-engine/sage/internal/schema"
)

const defaultTopK = 10

// Retriever issues the nearest-neighbor query against the evidence index
// and has the ranking model select, order, and diagnose the raw hits.
type Retriever struct {
	llm   Transport
	store index.Store
	log   *slog.Logger
}

func NewRetriever(llm Transport, store index.Store, log *slog.Logger) *Retriever {
	return &Retriever{llm: llm, store: store, log: log}
}

// Retrieve builds the query string from product id, user question, and
// planned aspects, fetches raw neighbors restricted by filters, and
// returns the ranked evidence set.
func (r *Retriever) Retrieve(ctx context.Context, pc schema.ProductContext, plan schema.PlannerOutput, filters map[string]string) (schema.RetrievalResult, error) {
	query := strings.TrimSpace(fmt.Sprintf("%s %s %s", pc.ProductID, pc.UserQuestion, strings.Join(plan.Aspects, " ")))

	raw, err := r.store.Query(ctx, query, topK(plan), filters)
	if err != nil {
		return schema.RetrievalResult{}, err
	}
	r.log.Info("raw retrieval", "query_len", len(query), "hits", len(raw))

	hits := make([]schema.RankedEvidence, 0, len(raw))
	for _, res := range raw {
		hits = append(hits, schema.RankedEvidence{
			EvidenceID: res.Unit.ID,
			Text:       res.Unit.Text,
			SourceType: string(res.Unit.SourceType),
			Score:      res.Distance,
		})
	}

	hitsJSON, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return schema.RetrievalResult{}, fmt.Errorf("marshal raw hits: %w", err)
	}

	user := fmt.Sprintf(`Query: %s
Raw Retrieved Chunks:
%s

Plan Aspects: %s
`, query, hitsJSON, strings.Join(plan.Aspects, ", "))

	resp, err := r.llm.Complete(ctx, retrieverSystemPrompt, user)
	if err != nil {
		return schema.RetrievalResult{}, &UpstreamError{Agent: "retriever", Err: err}
	}
	return schema.Decode[schema.RetrievalResult]("retrieval_result", resp)
}

func topK(plan schema.PlannerOutput) int {
	if v, ok := plan.RetrievalConfig["top_k"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			return int(f)
		}
	}
	return defaultTopK
}
