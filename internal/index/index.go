// Package index owns the persisted (chunk, vector, metadata) triples that
// retrieval runs against. The index holds evidence for at most one product
// at a time: every analysis run clears it before inserting, so retrieval
// can never surface another product's evidence.
package index

import (
	"context"
	"fmt"

	"github.com/sage-engine/sage/internal/schema"
)

// IndexError reports a clear, insert, or query failure. Insert failures
// are isolated per document: ParentID names the document whose units were
// not persisted.
type IndexError struct {
	Op       string
	ParentID string
	Err      error
}

func (e *IndexError) Error() string {
	if e.ParentID != "" {
		return fmt.Sprintf("index %s (document %s): %v", e.Op, e.ParentID, e.Err)
	}
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Result is one retrieval hit: an evidence view plus its distance to the
// query (ascending distance means better match).
type Result struct {
	Unit     schema.EvidenceUnit
	Distance float64
}

// Store is the evidence index contract.
type Store interface {
	// ClearAll deletes every stored unit. Idempotent; safe on an empty
	// index.
	ClearAll(ctx context.Context) error
	// ClearProduct deletes only units whose product id matches.
	ClearProduct(ctx context.Context, productID string) error
	// Add chunks, embeds (one batched call per document), and persists
	// each document's units atomically. A failing document never corrupts
	// another's units; failures are reported per document.
	Add(ctx context.Context, docs []schema.RawDocument) error
	// Query embeds the text with the indexing profile and returns at most
	// topK units matching the exact-match metadata filters, best match
	// first. An empty index or no matches yields an empty result, never
	// an error.
	Query(ctx context.Context, text string, topK int, filters map[string]string) ([]Result, error)
}
