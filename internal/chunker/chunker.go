// Package chunker splits raw source documents into ordered text chunks.
// Each source type gets its own segmentation policy so that chunk
// granularity matches the unit of independent claim support in that
// medium: a time window for speech, a post or comment for forum content,
// a whole review for opinion text, a character window for dense markup.
package chunker

import (
	"fmt"
	"strings"

	"github.com/sage-engine/sage/internal/schema"
)

// Character window applied to normalized page text. The 200-character
// overlap keeps context that straddles a boundary retrievable from both
// sides.
const (
	pdpWindowSize = 2000
	pdpStride     = 1800
)

// youtubeWindowSeconds is the accumulated segment duration that closes a
// transcript chunk.
const youtubeWindowSeconds = 30

// redditSplitThreshold is the comment length above which a comment is
// split into two halves instead of kept whole.
const redditSplitThreshold = 1000

// Chunk converts a raw document into an ordered sequence of text chunks.
// It never fails: a document whose typed payload is missing or malformed
// degrades to the whole text as a single chunk, and an empty document
// yields no chunks at all.
func Chunk(doc schema.RawDocument) []string {
	switch doc.SourceType {
	case schema.SourcePDP:
		return chunkPDP(doc.Text)
	case schema.SourceYouTube:
		if len(doc.Segments) == 0 {
			return wholeText(doc.Text)
		}
		return chunkTranscript(doc.Segments)
	case schema.SourceReddit:
		if doc.Thread == nil {
			return wholeText(doc.Text)
		}
		return chunkThread(doc.Thread)
	case schema.SourceReviews:
		return chunkReviews(doc)
	case schema.SourceVLMImage:
		if doc.Image == nil {
			return wholeText(doc.Text)
		}
		return chunkVisionOutput(doc.Image)
	default:
		return wholeText(doc.Text)
	}
}

// chunkPDP extracts the visible text of product-page markup and applies
// the sliding character window. A markup parse failure falls back to
// windowing the raw input.
func chunkPDP(rawHTML string) []string {
	text, err := extractVisibleText(rawHTML)
	if err != nil {
		return slidingWindow(rawHTML)
	}
	return slidingWindow(text)
}

// slidingWindow emits ceil(len/stride) chunks of at most pdpWindowSize
// characters, adjacent chunks overlapping by exactly
// pdpWindowSize-pdpStride characters except possibly the last.
func slidingWindow(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(runes); i += pdpStride {
		end := i + pdpWindowSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// chunkTranscript accumulates consecutive segments until their summed
// duration reaches the window, then flushes. Boundaries are
// duration-driven, not character-count-driven.
func chunkTranscript(segments []schema.TranscriptSegment) []string {
	var chunks []string
	var current []string
	var duration float64

	for _, seg := range segments {
		current = append(current, seg.Text)
		duration += seg.Duration
		if duration >= youtubeWindowSeconds {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			duration = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// chunkThread emits the post as one chunk, then each comment on its own
// so distinct voices stay distinct. Oversized comments split into exactly
// two halves at the midpoint.
func chunkThread(thread *schema.RedditThread) []string {
	chunks := []string{fmt.Sprintf("Title: %s\nBody: %s", thread.Title, thread.Selftext)}
	for _, comment := range thread.Comments {
		runes := []rune(comment)
		if len(runes) > redditSplitThreshold {
			mid := len(runes) / 2
			chunks = append(chunks, string(runes[:mid]), string(runes[mid:]))
		} else {
			chunks = append(chunks, comment)
		}
	}
	return chunks
}

// chunkReviews emits one chunk per review, or the bare text as a single
// chunk when the input is one review string.
func chunkReviews(doc schema.RawDocument) []string {
	if len(doc.Reviews) > 0 {
		out := make([]string, len(doc.Reviews))
		copy(out, doc.Reviews)
		return out
	}
	return wholeText(doc.Text)
}

// chunkVisionOutput synthesizes one descriptive chunk from structured
// vision output so image-derived facts become retrievable text.
func chunkVisionOutput(img *schema.VisionOutput) []string {
	text := fmt.Sprintf("Specs: %s\nCaptions: %s",
		strings.Join(img.SpecsDetected, ", "),
		strings.Join(img.Captions, ", "))
	return []string{text}
}

func wholeText(text string) []string {
	if text == "" {
		return nil
	}
	return []string{text}
}
