// Package tcs computes the Trust Confidence Score: a deterministic
// weighted composite of five sub-scores describing how well a trust
// summary's claims are grounded, accurate, aspect-complete, conflict-aware,
// and certain. The computation is a pure function of its inputs and never
// fails; every zero-denominator case has a defined fallback.
package tcs

import (
	"math"
	"strings"

	"github.com/sage-engine/sage/internal/schema"
)

// Component weights. Groundedness dominates: an ungrounded summary is
// worthless regardless of how well it covers aspects.
const (
	weightGroundedness = 0.35
	weightAccuracy     = 0.25
	weightCoverage     = 0.20
	weightConflict     = 0.15
	weightUncertainty  = 0.05
)

// Band thresholds, evaluated high to low on the rounded composite.
const (
	thresholdElite          = 0.90
	thresholdProductionSafe = 0.80
	thresholdPilot          = 0.60
)

// Compute aggregates judged claims into a banded score.
//
//   - Groundedness: share of claims labeled Supported or PartiallySupported
//     that cite at least one evidence id.
//   - Accuracy: share of claims labeled exactly Supported.
//   - Coverage: share of the aspect vocabulary appearing (case-insensitive
//     substring) in at least one supported claim's text.
//   - Conflict detection: 1/(1+conflicts), decreasing as more conflicts
//     are surfaced.
//   - Uncertainty: 1 minus the uncertainty count over the vocabulary size,
//     floored at zero. Summary uncertainties and judge uncertainty aspects
//     are summed without deduplication; double-counting an aspect both
//     collaborators flag is accepted heuristic behavior.
//
// The evidence set travels with the other score inputs but no component
// currently reads it; it is part of the contract for scorers that weigh
// evidence provenance.
func Compute(judge schema.JudgeOutput, summary schema.TrustSummary, evidence []schema.RankedEvidence, aspects []string) schema.TCSComponents {
	_ = evidence

	totalClaims := len(judge.ClaimsJudgement)
	grounded := 0
	supported := 0
	covered := make(map[string]bool)

	for _, j := range judge.ClaimsJudgement {
		isSupported := j.Label == schema.LabelSupported || j.Label == schema.LabelPartiallySupported
		if isSupported && len(j.EvidenceIDs) > 0 {
			grounded++
		}
		if j.Label == schema.LabelSupported {
			supported++
		}
		if isSupported {
			claim := strings.ToLower(j.ClaimText)
			// Substring match is a deliberate heuristic: "sound" matches
			// "soundproof" too. Pinned behavior; see Coverage docs.
			for _, aspect := range aspects {
				if strings.Contains(claim, strings.ToLower(aspect)) {
					covered[aspect] = true
				}
			}
		}
	}

	var groundedness, accuracy float64
	if totalClaims > 0 {
		groundedness = float64(grounded) / float64(totalClaims)
		accuracy = float64(supported) / float64(totalClaims)
	}

	var coverage float64
	if len(aspects) > 0 {
		coverage = float64(len(covered)) / float64(len(aspects))
	}

	conflict := 1.0 / (1.0 + float64(len(judge.Conflicts)))

	vocabulary := len(aspects)
	if vocabulary < 1 {
		vocabulary = 1
	}
	uncertainCount := len(summary.Uncertainties) + len(judge.UncertaintyAspects)
	uncertainty := math.Max(0, 1-float64(uncertainCount)/float64(vocabulary))

	// Round each term before combining so the composite is reproducible
	// from the displayed components.
	g := round2(clamp01(groundedness))
	a := round2(clamp01(accuracy))
	c := round2(clamp01(coverage))
	d := round2(clamp01(conflict))
	u := round2(clamp01(uncertainty))

	score := round2(weightGroundedness*g + weightAccuracy*a + weightCoverage*c + weightConflict*d + weightUncertainty*u)

	return schema.TCSComponents{
		Groundedness:      g,
		Accuracy:          a,
		Coverage:          c,
		ConflictDetection: d,
		Uncertainty:       u,
		TCSScore:          score,
		Band:              band(score),
	}
}

func band(score float64) string {
	switch {
	case score >= thresholdElite:
		return schema.BandElite
	case score >= thresholdProductionSafe:
		return schema.BandProductionSafe
	case score >= thresholdPilot:
		return schema.BandPilot
	default:
		return schema.BandUnsafe
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
