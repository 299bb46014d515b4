package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sage-engine/sage/internal/chunker"
	"github.com/sage-engine/sage/internal/embedding"
	"github.com/sage-engine/sage/internal/schema"
)

// Memory is a brute-force in-process vector store. One analysis run's
// evidence comfortably fits in memory, and the clear-before-insert
// discipline keeps the working set bounded to a single product.
type Memory struct {
	mu      sync.RWMutex
	units   []schema.EvidenceUnit
	embed   *embedding.Registry
	profile string
	log     *slog.Logger
}

func NewMemory(embed *embedding.Registry, profile string, log *slog.Logger) *Memory {
	if profile == "" {
		profile = embedding.ProfilePrimary
	}
	return &Memory{
		embed:   embed,
		profile: profile,
		log:     log,
	}
}

func (m *Memory) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.units) > 0 {
		m.log.Info("clearing evidence index", "units", len(m.units))
	}
	m.units = nil
	return nil
}

func (m *Memory) ClearProduct(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.units[:0]
	removed := 0
	for _, u := range m.units {
		if u.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	m.units = kept
	if removed > 0 {
		m.log.Info("cleared product evidence", "product_id", productID, "units", removed)
	}
	return nil
}

// Add processes each document independently: chunk, one batched embed
// call, then an atomic append of all resulting units. Documents that fail
// are reported individually via errors.Join; the others still persist.
func (m *Memory) Add(ctx context.Context, docs []schema.RawDocument) error {
	var errs []error
	for _, doc := range docs {
		if err := m.addOne(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Memory) addOne(ctx context.Context, doc schema.RawDocument) error {
	chunks := chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := m.embed.Embed(ctx, chunks, m.profile)
	if err != nil {
		return &IndexError{Op: "add", ParentID: parentID(doc), Err: err}
	}
	if len(vectors) != len(chunks) {
		return &IndexError{
			Op:       "add",
			ParentID: parentID(doc),
			Err:      fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	units := make([]schema.EvidenceUnit, len(chunks))
	for i, chunk := range chunks {
		meta := make(map[string]string, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["source_type"] = string(doc.SourceType)
		meta["chunk_index"] = fmt.Sprintf("%d", i)
		meta["parent_id"] = parentID(doc)
		if doc.ProductID != "" {
			meta["product_id"] = doc.ProductID
		}

		units[i] = schema.EvidenceUnit{
			ID:         uuid.NewString(),
			ProductID:  doc.ProductID,
			SourceType: doc.SourceType,
			Text:       chunk,
			Embedding:  vectors[i],
			ParentID:   parentID(doc),
			ChunkIndex: i,
			Metadata:   meta,
		}
	}

	m.mu.Lock()
	m.units = append(m.units, units...)
	m.mu.Unlock()

	m.log.Debug("indexed document", "source_type", doc.SourceType, "chunks", len(units))
	return nil
}

func (m *Memory) Query(ctx context.Context, text string, topK int, filters map[string]string) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	vectors, err := m.embed.Embed(ctx, []string{text}, m.profile)
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}
	query := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, topK)
	for _, u := range m.units {
		if !matchesFilters(u, filters) {
			continue
		}
		results = append(results, Result{Unit: u, Distance: cosineDistance(query, u.Embedding)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func matchesFilters(u schema.EvidenceUnit, filters map[string]string) bool {
	for k, v := range filters {
		if u.Metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineDistance is 1 - cosine similarity: 0 for identical directions,
// growing as vectors diverge, so ascending order is best-first.
func cosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func parentID(doc schema.RawDocument) string {
	if doc.ParentID == "" {
		return "unknown"
	}
	return doc.ParentID
}
