package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sage-engine/sage/internal/schema"
)

// Summarizer produces the evidence-grounded trust summary.
type Summarizer struct {
	llm Transport
	log *slog.Logger
}

func NewSummarizer(llm Transport, log *slog.Logger) *Summarizer {
	return &Summarizer{llm: llm, log: log}
}

func (s *Summarizer) Summarize(ctx context.Context, productID string, evidence []schema.RankedEvidence) (schema.TrustSummary, error) {
	evidenceJSON, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return schema.TrustSummary{}, fmt.Errorf("marshal evidence: %w", err)
	}

	user := fmt.Sprintf(`Product ID: %s
Evidence Bundle:
%s
`, productID, evidenceJSON)

	raw, err := s.llm.Complete(ctx, summarizerSystemPrompt, user)
	if err != nil {
		return schema.TrustSummary{}, &UpstreamError{Agent: "summarizer", Err: err}
	}

	summary, err := schema.Decode[schema.TrustSummary]("trust_summary", raw)
	if err != nil {
		return schema.TrustSummary{}, err
	}
	s.log.Info("summary produced", "aspects", len(summary.Aspects), "claims", len(summary.Claims))
	return summary, nil
}
