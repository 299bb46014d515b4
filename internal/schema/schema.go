// Package schema defines the typed records exchanged between the evidence
// index, the trust-scoring engine, and the external model collaborators.
// Collaborator output is always decoded into one of these structs, never
// into untyped maps.
package schema

// SourceType identifies the medium a raw document came from. The chunker
// picks its segmentation policy from this value.
type SourceType string

const (
	SourcePDP               SourceType = "pdp"
	SourceYouTube           SourceType = "youtube"
	SourceReddit            SourceType = "reddit"
	SourceReviews           SourceType = "reviews"
	SourceVLMImage          SourceType = "vlm_image"
	SourcePDFText           SourceType = "pdf_text"
	SourceStructuredContent SourceType = "structured_content"
	SourceOther             SourceType = "other"
)

// ProductContext is the full input to one analysis run: everything known
// about a product before any evidence has been indexed.
type ProductContext struct {
	ProductID         string            `json:"product_id" validate:"required"`
	URL               string            `json:"url"`
	PDPHTML           string            `json:"pdp_html"`
	Images            []string          `json:"images"`
	ReviewsHTML       string            `json:"reviews_html,omitempty"`
	Source            string            `json:"source" validate:"omitempty,oneof=web_app browser_extension"`
	Timestamp         string            `json:"timestamp"`
	UserQuestion      string            `json:"user_question,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	StructuredContent map[string]string `json:"structured_content,omitempty"`

	// ManualPDF carries raw product-manual bytes when the caller uploaded
	// one. Never serialized; extracted to text during ingest.
	ManualPDF []byte `json:"-"`
}

// TranscriptSegment is one timed piece of a video transcript.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// RedditThread is a forum post with its comments.
type RedditThread struct {
	Title    string   `json:"title"`
	Selftext string   `json:"selftext"`
	Comments []string `json:"comments"`
}

// RawDocument is the transient input to the chunker. Text is always
// available as a fallback; the typed payloads carry the structure the
// per-source chunking policies need.
type RawDocument struct {
	Text       string            `json:"text"`
	SourceType SourceType        `json:"source_type"`
	ProductID  string            `json:"product_id"`
	ParentID   string            `json:"parent_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	Segments []TranscriptSegment `json:"segments,omitempty"`
	Thread   *RedditThread       `json:"thread,omitempty"`
	Reviews  []string            `json:"reviews,omitempty"`
	Image    *VisionOutput       `json:"image,omitempty"`
}

// EvidenceUnit is one retrievable, embedded fragment of source text with
// provenance metadata. Immutable once written; destroyed only by explicit
// clear operations on the index.
type EvidenceUnit struct {
	ID         string            `json:"evidence_id"`
	ProductID  string            `json:"product_id"`
	SourceType SourceType        `json:"source_type"`
	Text       string            `json:"text"`
	Embedding  []float64         `json:"-"`
	ParentID   string            `json:"parent_id"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata"`
}

// RankedEvidence is an evidence view as the retriever-ranker returns it:
// the fields the summarizer and judge consume, without the vector.
type RankedEvidence struct {
	EvidenceID string   `json:"evidence_id" validate:"required"`
	Text       string   `json:"text" validate:"required"`
	SourceType string   `json:"source_type,omitempty"`
	AspectTags []string `json:"aspect_tags,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// RetrievalResult is the retriever-ranker collaborator's output.
type RetrievalResult struct {
	Evidence    []RankedEvidence `json:"evidence" validate:"dive"`
	Diagnostics map[string]any   `json:"diagnostics"`
}

// PlannerOutput is the planner collaborator's output.
type PlannerOutput struct {
	Mode               string         `json:"mode" validate:"required"`
	ProductIDs         []string       `json:"product_ids"`
	Aspects            []string       `json:"aspects"`
	SourcesToUse       []string       `json:"sources_to_use"`
	RetrievalConfig    map[string]any `json:"retrieval_config"`
	NotesForSummarizer string         `json:"notes_for_summarizer"`
}

// VisionOutput is the image/OCR collaborator's output.
type VisionOutput struct {
	Captions         []string           `json:"captions"`
	SpecsDetected    []string           `json:"specs_detected"`
	ModelStrings     []string           `json:"model_strings"`
	Ports            []string           `json:"ports"`
	ManualText       string             `json:"manual_text,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// AspectSummary scores one product dimension.
type AspectSummary struct {
	Name         string   `json:"name" validate:"required"`
	Score        int      `json:"score_0_10" validate:"gte=0,lte=10"`
	Pros         []string `json:"pros"`
	Cons         []string `json:"cons"`
	Dealbreakers []string `json:"dealbreakers"`
}

// TrustSummary is the summarizer collaborator's output: the claims and
// aspect breakdown the judge and the TCS engine consume.
type TrustSummary struct {
	ProductID      string          `json:"product_id"`
	OverallVerdict string          `json:"overall_verdict"`
	Aspects        []AspectSummary `json:"aspects" validate:"dive"`
	Claims         []string        `json:"claims"`
	Conflicts      []string        `json:"conflicts"`
	Uncertainties  []string        `json:"uncertainties"`
}

// Judge labels, as the judge collaborator emits them.
const (
	LabelSupported          = "Supported"
	LabelPartiallySupported = "PartiallySupported"
	LabelUnsupported        = "Unsupported"
	LabelContradicted       = "Contradicted"
)

// ClaimJudgement is the judge's verdict on one claim.
type ClaimJudgement struct {
	ClaimText   string   `json:"claim_text" validate:"required"`
	EvidenceIDs []string `json:"evidence_ids"`
	Label       string   `json:"judge_label" validate:"required,oneof=Supported PartiallySupported Unsupported Contradicted"`
	Reasoning   string   `json:"reasoning"`
}

// JudgeOutput is the judge collaborator's output.
type JudgeOutput struct {
	ClaimsJudgement    []ClaimJudgement `json:"claims_judgement" validate:"dive"`
	Conflicts          []string         `json:"conflicts"`
	UncertaintyAspects []string         `json:"uncertainty_aspects"`
}

// Trust bands, thresholded high to low from the composite score.
const (
	BandElite          = "Elite"
	BandProductionSafe = "Production Safe"
	BandPilot          = "Pilot"
	BandUnsafe         = "Unsafe"
)

// TCSComponents is the five-component trust score with its qualitative
// band. Computed fresh each run; never mutated after creation.
type TCSComponents struct {
	Groundedness      float64 `json:"groundedness"`
	Accuracy          float64 `json:"accuracy"`
	Coverage          float64 `json:"coverage"`
	ConflictDetection float64 `json:"conflict_detection"`
	Uncertainty       float64 `json:"uncertainty"`
	TCSScore          float64 `json:"tcs_score"`
	Band              string  `json:"band"`
}

// AnalysisResult is the final assembled record for one run.
type AnalysisResult struct {
	ProductID     string         `json:"product_id"`
	TCSScore      float64        `json:"tcs_score"`
	TCSBand       string         `json:"tcs_band"`
	TCSComponents TCSComponents  `json:"tcs_components"`
	TrustSummary  TrustSummary   `json:"trust_summary"`
	Diagnostics   map[string]any `json:"diagnostics"`
}
