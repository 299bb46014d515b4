package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ParseError reports collaborator output that could not be decoded into its
// expected schema. Raw carries a truncated copy of the offending payload.
type ParseError struct {
	Schema string
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s (raw: %s)", e.Schema, e.Reason, e.Raw)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeBlock removes a surrounding Markdown code fence, which models
// frequently wrap JSON output in despite instructions.
func StripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// Decode strictly decodes a collaborator's raw text response into T:
// fence-strip, unmarshal, then struct validation. Any failure is a
// *ParseError naming the target schema.
func Decode[T any](name, raw string) (T, error) {
	var out T
	text := StripCodeBlock(raw)
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, &ParseError{Schema: name, Reason: err.Error(), Raw: truncate(text, 200)}
	}
	if err := validate.Struct(&out); err != nil {
		return out, &ParseError{Schema: name, Reason: err.Error(), Raw: truncate(text, 200)}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
