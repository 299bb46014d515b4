package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-engine/sage/internal/schema"
)

func pageText(n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = rune('a' + i%26)
	}
	return string(runes)
}

func TestChunkPDPSlidingWindow(t *testing.T) {
	text := pageText(4000)
	chunks := Chunk(schema.RawDocument{Text: text, SourceType: schema.SourcePDP})

	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 2000)
	assert.Len(t, []rune(chunks[1]), 2000)
	assert.Len(t, []rune(chunks[2]), 400)

	// Adjacent chunks share exactly 200 characters.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	assert.Equal(t, string(first[1800:]), string(second[:200]))

	// Concatenating chunks at stride offsets reconstructs the text.
	assert.Equal(t, text, chunks[0]+string(second[200:])+string([]rune(chunks[2])[200:]))
}

func TestChunkPDPShortText(t *testing.T) {
	chunks := Chunk(schema.RawDocument{Text: "short page", SourceType: schema.SourcePDP})
	require.Len(t, chunks, 1)
	assert.Equal(t, "short page", chunks[0])
}

func TestChunkPDPStripsMarkup(t *testing.T) {
	page := `<html><head><script>var x = 1;</script><style>p{}</style></head>` +
		`<body><nav>Menu</nav><p>Great battery life.</p><footer>Legal</footer></body></html>`
	chunks := Chunk(schema.RawDocument{Text: page, SourceType: schema.SourcePDP})

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Great battery life.")
	assert.NotContains(t, chunks[0], "var x")
	assert.NotContains(t, chunks[0], "Menu")
	assert.NotContains(t, chunks[0], "Legal")
}

func TestChunkTranscriptDurationWindows(t *testing.T) {
	doc := schema.RawDocument{
		SourceType: schema.SourceYouTube,
		Segments: []schema.TranscriptSegment{
			{Text: "intro", Duration: 10},
			{Text: "specs overview", Duration: 10},
			{Text: "sound test", Duration: 10},
			{Text: "battery drain", Duration: 25},
			{Text: "verdict", Duration: 5},
			{Text: "outro", Duration: 4},
		},
	}
	chunks := Chunk(doc)

	require.Len(t, chunks, 3)
	assert.Equal(t, "intro specs overview sound test", chunks[0])
	assert.Equal(t, "battery drain verdict", chunks[1])
	assert.Equal(t, "outro", chunks[2])
}

func TestChunkTranscriptNoSegmentsFallsBack(t *testing.T) {
	chunks := Chunk(schema.RawDocument{Text: "full transcript text", SourceType: schema.SourceYouTube})
	assert.Equal(t, []string{"full transcript text"}, chunks)
}

func TestChunkRedditThread(t *testing.T) {
	doc := schema.RawDocument{
		SourceType: schema.SourceReddit,
		Thread: &schema.RedditThread{
			Title:    "My Review",
			Selftext: "It is good.",
			Comments: []string{"I agree.", "I disagree."},
		},
	}
	chunks := Chunk(doc)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Title: My Review\nBody: It is good.", chunks[0])
	assert.Equal(t, "I agree.", chunks[1])
	assert.Equal(t, "I disagree.", chunks[2])
}

func TestChunkRedditLongCommentSplitsInHalves(t *testing.T) {
	long := strings.Repeat("x", 1001)
	doc := schema.RawDocument{
		SourceType: schema.SourceReddit,
		Thread: &schema.RedditThread{
			Title:    "Thread",
			Selftext: "Body",
			Comments: []string{long},
		},
	}
	chunks := Chunk(doc)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 501)
	assert.Equal(t, long, chunks[1]+chunks[2])
}

func TestChunkReviews(t *testing.T) {
	doc := schema.RawDocument{
		SourceType: schema.SourceReviews,
		Reviews:    []string{"Loved it.", "Broke after a week."},
	}
	chunks := Chunk(doc)
	assert.Equal(t, []string{"Loved it.", "Broke after a week."}, chunks)
}

func TestChunkVisionOutput(t *testing.T) {
	doc := schema.RawDocument{
		SourceType: schema.SourceVLMImage,
		Image: &schema.VisionOutput{
			SpecsDetected: []string{"40mm driver", "USB-C"},
			Captions:      []string{"headphones on desk"},
		},
	}
	chunks := Chunk(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Specs: 40mm driver, USB-C\nCaptions: headphones on desk", chunks[0])
}

func TestChunkUnknownSourceWholeText(t *testing.T) {
	chunks := Chunk(schema.RawDocument{Text: "opaque blob", SourceType: schema.SourceOther})
	assert.Equal(t, []string{"opaque blob"}, chunks)
}

func TestChunkEmptyDocument(t *testing.T) {
	assert.Empty(t, Chunk(schema.RawDocument{SourceType: schema.SourcePDP}))
	assert.Empty(t, Chunk(schema.RawDocument{SourceType: schema.SourceOther}))
}
