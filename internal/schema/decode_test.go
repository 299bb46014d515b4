package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"mode":"single"}`, `{"mode":"single"}`},
		{"json fence", "```json\n{\"mode\":\"single\"}\n```", `{"mode":"single"}`},
		{"plain fence", "```\n{\"mode\":\"single\"}\n```", `{"mode":"single"}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n  ", "{}"},
		{"unclosed fence left alone", "```json\n{}", "```json\n{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeBlock(tc.in))
		})
	}
}

func TestDecodePlannerOutput(t *testing.T) {
	raw := "```json\n{\"mode\":\"single_product\",\"aspects\":[\"battery\",\"sound\"],\"retrieval_config\":{\"top_k\":5}}\n```"

	out, err := Decode[PlannerOutput]("planner_output", raw)
	require.NoError(t, err)
	assert.Equal(t, "single_product", out.Mode)
	assert.Equal(t, []string{"battery", "sound"}, out.Aspects)
	assert.Equal(t, float64(5), out.RetrievalConfig["top_k"])
}

func TestDecodeRejectsJunk(t *testing.T) {
	_, err := Decode[PlannerOutput]("planner_output", "I could not produce JSON, sorry.")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "planner_output", parseErr.Schema)
	assert.NotEmpty(t, parseErr.Raw)
}

func TestDecodeRejectsMissingRequiredField(t *testing.T) {
	// PlannerOutput.Mode is required.
	_, err := Decode[PlannerOutput]("planner_output", `{"aspects":["battery"]}`)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestDecodeRejectsUnknownJudgeLabel(t *testing.T) {
	raw := `{"claims_judgement":[{"claim_text":"battery is great","judge_label":"Probably","evidence_ids":[]}]}`

	_, err := Decode[JudgeOutput]("judge_output", raw)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "judge_output", parseErr.Schema)
}

func TestDecodeJudgeOutput(t *testing.T) {
	raw := `{
		"claims_judgement": [
			{"claim_text": "Battery lasts 30 hours", "evidence_ids": ["ev_1"], "judge_label": "Supported", "reasoning": "matches spec sheet"}
		],
		"conflicts": [],
		"uncertainty_aspects": ["durability"]
	}`

	out, err := Decode[JudgeOutput]("judge_output", raw)
	require.NoError(t, err)
	require.Len(t, out.ClaimsJudgement, 1)
	assert.Equal(t, LabelSupported, out.ClaimsJudgement[0].Label)
	assert.Equal(t, []string{"ev_1"}, out.ClaimsJudgement[0].EvidenceIDs)
	assert.Equal(t, []string{"durability"}, out.UncertaintyAspects)
}

func TestDecodeTruncatesRawInError(t *testing.T) {
	long := "not json " + strings.Repeat("x", 500)
	_, err := Decode[PlannerOutput]("planner_output", long)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.LessOrEqual(t, len(parseErr.Raw), 203)
}
