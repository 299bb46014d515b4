package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sage-engine/sage/internal/schema"
)

// Vision extracts structured specs, captions, and manual text from
// product images.
type Vision struct {
	llm Transport
	log *slog.Logger
}

func NewVision(llm Transport, log *slog.Logger) *Vision {
	return &Vision{llm: llm, log: log}
}

// ProcessImages analyzes the product's images. With no images it returns
// an all-empty result without any external call.
func (v *Vision) ProcessImages(ctx context.Context, pc schema.ProductContext) (schema.VisionOutput, error) {
	if len(pc.Images) == 0 {
		return schema.VisionOutput{}, nil
	}

	user := fmt.Sprintf(`Product ID: %s
Images to process: %s
`, pc.ProductID, strings.Join(pc.Images, "\n"))

	raw, err := v.llm.Complete(ctx, visionSystemPrompt, user)
	if err != nil {
		return schema.VisionOutput{}, &UpstreamError{Agent: "vision", Err: err}
	}

	out, err := schema.Decode[schema.VisionOutput]("vision_output", raw)
	if err != nil {
		return schema.VisionOutput{}, err
	}
	v.log.Info("images processed", "images", len(pc.Images), "specs_detected", len(out.SpecsDetected))
	return out, nil
}
