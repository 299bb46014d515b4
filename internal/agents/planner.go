package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sage-engine/sage/internal/schema"
)

// Planner decides which sources and aspects matter for a product question.
type Planner struct {
	llm Transport
	log *slog.Logger
}

func NewPlanner(llm Transport, log *slog.Logger) *Planner {
	return &Planner{llm: llm, log: log}
}

func (p *Planner) Plan(ctx context.Context, pc schema.ProductContext) (schema.PlannerOutput, error) {
	user := fmt.Sprintf(`Product Context:
Product ID: %s
URL: %s
Source: %s
User Question: %s
`, pc.ProductID, pc.URL, pc.Source, pc.UserQuestion)

	raw, err := p.llm.Complete(ctx, plannerSystemPrompt, user)
	if err != nil {
		return schema.PlannerOutput{}, &UpstreamError{Agent: "planner", Err: err}
	}

	plan, err := schema.Decode[schema.PlannerOutput]("planner_output", raw)
	if err != nil {
		return schema.PlannerOutput{}, err
	}
	p.log.Info("plan produced", "mode", plan.Mode, "aspects", len(plan.Aspects))
	return plan, nil
}
