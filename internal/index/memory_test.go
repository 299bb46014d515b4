package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-engine/sage/internal/embedding"
	"github.com/sage-engine/sage/internal/schema"
)

func newTestStore(t *testing.T) *Memory {
	t.Helper()
	registry := embedding.NewRegistry()
	registry.Register(embedding.ProfilePrimary, embedding.NewPlaceholder(64))
	return NewMemory(registry, embedding.ProfilePrimary, slog.New(slog.DiscardHandler))
}

func TestAddAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Add(ctx, []schema.RawDocument{
		{
			Text:       "Battery lasts 30 hours on a single charge.",
			SourceType: schema.SourceOther,
			ProductID:  "p1",
			ParentID:   "doc1",
			Metadata:   map[string]string{"run_id": "r1"},
		},
		{
			Text:       "The sound stage is wide and detailed.",
			SourceType: schema.SourceOther,
			ProductID:  "p1",
			ParentID:   "doc2",
			Metadata:   map[string]string{"run_id": "r1"},
		},
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "Battery lasts 30 hours on a single charge.", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Exact text match embeds to the identical vector: distance zero, first.
	assert.Equal(t, "Battery lasts 30 hours on a single charge.", results[0].Unit.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.Greater(t, results[1].Distance, results[0].Distance)

	unit := results[0].Unit
	assert.NotEmpty(t, unit.ID)
	assert.Equal(t, "p1", unit.ProductID)
	assert.Equal(t, "doc1", unit.ParentID)
	assert.Equal(t, 0, unit.ChunkIndex)
	assert.Equal(t, "r1", unit.Metadata["run_id"])
	assert.Equal(t, "other", unit.Metadata["source_type"])
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Add(ctx, []schema.RawDocument{
		{Text: "old run text", SourceType: schema.SourceOther, ProductID: "p1", Metadata: map[string]string{"run_id": "r1"}},
		{Text: "new run text", SourceType: schema.SourceOther, ProductID: "p1", Metadata: map[string]string{"run_id": "r2"}},
	}))

	results, err := store.Query(ctx, "text", 10, map[string]string{"run_id": "r2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new run text", results[0].Unit.Text)
}

func TestClearAllEmptiesIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Add(ctx, []schema.RawDocument{
		{Text: "anything", SourceType: schema.SourceOther, ProductID: "p1"},
	}))
	require.NoError(t, store.ClearAll(ctx))

	results, err := store.Query(ctx, "anything", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClearProductKeepsOthers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Add(ctx, []schema.RawDocument{
		{Text: "first product", SourceType: schema.SourceOther, ProductID: "p1"},
		{Text: "second product", SourceType: schema.SourceOther, ProductID: "p2"},
	}))
	require.NoError(t, store.ClearProduct(ctx, "p1"))

	results, err := store.Query(ctx, "product", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].Unit.ProductID)
}

func TestSequentialRunsDoNotLeak(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Add(ctx, []schema.RawDocument{
		{Text: "evidence for product one", SourceType: schema.SourceOther, ProductID: "p1"},
	}))
	require.NoError(t, store.ClearAll(ctx))
	require.NoError(t, store.Add(ctx, []schema.RawDocument{
		{Text: "evidence for product two", SourceType: schema.SourceOther, ProductID: "p2"},
	}))

	results, err := store.Query(ctx, "evidence", 10, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "p2", r.Unit.ProductID)
	}
}

func TestQueryTopKCap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var docs []schema.RawDocument
	for i := 0; i < 8; i++ {
		docs = append(docs, schema.RawDocument{
			Text:       fmt.Sprintf("evidence chunk %d", i),
			SourceType: schema.SourceOther,
			ProductID:  "p1",
		})
	}
	require.NoError(t, store.Add(ctx, docs))

	results, err := store.Query(ctx, "evidence", 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

type failingEmbedder struct {
	failOn string
}

func (f *failingEmbedder) Dimension() int { return 4 }

func (f *failingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	for _, t := range texts {
		if t == f.failOn {
			return nil, errors.New("backend unavailable")
		}
	}
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0, 0, 0}
	}
	return out, nil
}

func TestAddIsolatesPerDocumentFailures(t *testing.T) {
	ctx := context.Background()
	registry := embedding.NewRegistry()
	registry.Register(embedding.ProfilePrimary, &failingEmbedder{failOn: "poison"})
	store := NewMemory(registry, embedding.ProfilePrimary, slog.New(slog.DiscardHandler))

	err := store.Add(ctx, []schema.RawDocument{
		{Text: "healthy", SourceType: schema.SourceOther, ProductID: "p1"},
		{Text: "poison", SourceType: schema.SourceOther, ProductID: "p1", ParentID: "bad-doc"},
		{Text: "also healthy", SourceType: schema.SourceOther, ProductID: "p1"},
	})
	require.Error(t, err)

	var indexErr *IndexError
	require.ErrorAs(t, err, &indexErr)
	assert.Equal(t, "add", indexErr.Op)
	assert.Equal(t, "bad-doc", indexErr.ParentID)

	// The healthy documents persisted.
	results, queryErr := store.Query(ctx, "healthy", 10, nil)
	require.NoError(t, queryErr)
	assert.Len(t, results, 2)
}
