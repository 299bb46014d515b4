package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sage-engine/sage/internal/schema"
)

// Judge evaluates each summary claim strictly against the evidence.
type Judge struct {
	llm Transport
	log *slog.Logger
}

func NewJudge(llm Transport, log *slog.Logger) *Judge {
	return &Judge{llm: llm, log: log}
}

func (j *Judge) Judge(ctx context.Context, summary schema.TrustSummary, evidence []schema.RankedEvidence) (schema.JudgeOutput, error) {
	evidenceJSON, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return schema.JudgeOutput{}, fmt.Errorf("marshal evidence: %w", err)
	}

	user := fmt.Sprintf(`Trust Summary Claims: %s
Evidence Bundle:
%s
`, strings.Join(summary.Claims, "; "), evidenceJSON)

	raw, err := j.llm.Complete(ctx, judgeSystemPrompt, user)
	if err != nil {
		return schema.JudgeOutput{}, &UpstreamError{Agent: "judge", Err: err}
	}

	out, err := schema.Decode[schema.JudgeOutput]("judge_output", raw)
	if err != nil {
		return schema.JudgeOutput{}, err
	}
	j.log.Info("claims judged", "claims", len(out.ClaimsJudgement), "conflicts", len(out.Conflicts))
	return out, nil
}
