package memory

import (
	"context"
	"fmt"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), openai (API-based), cached (decorator).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Record is one stored memory: content, its embedding, caller metadata, and
// a monotonic sequence id assigned at commit time. Records are immutable
// once stored; they leave the store only through capacity eviction.
type Record struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding"`
	Seq       uint64         `json:"seq"`
}

// Result is one retrieval hit. Slices of Result are ordered most-relevant
// first.
type Result struct {
	Content  string
	Metadata map[string]any
	Score    float64
	Seq      uint64
}

// Staged is a memory write that has been embedded but not yet committed.
// Splitting the failable half (embedding) from the infallible half (append)
// lets the orchestrator embed everything a turn produces before mutating
// any state.
type Staged struct {
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// Store is the vector memory contract shared by the in-memory VectorStore
// and alternative backends.
type Store interface {
	// Store embeds content and appends it, equivalent to Stage then Commit.
	// The record is not partially stored on embedding failure.
	Store(ctx context.Context, content string, metadata map[string]any) (uint64, error)

	// Stage embeds content without appending it.
	Stage(ctx context.Context, content string, metadata map[string]any) (*Staged, error)

	// Commit appends a staged record, returning its sequence id.
	Commit(st *Staged) uint64

	// Retrieve ranks stored records by similarity to query, most-relevant
	// first. Filters restrict to records whose metadata matches every
	// supplied key/value exactly, applied before ranking. An empty store
	// yields an empty result, not an error.
	Retrieve(ctx context.Context, query string, topK int, filters map[string]any) ([]Result, error)

	// Size returns the stored record count.
	Size() int
}

// Exporter is implemented by stores that can serialize their records for
// the persistence contract. The default VectorStore supports it; external
// backends may not.
type Exporter interface {
	Export() []Record
	Import(records []Record) error
}

// EmbeddingError wraps a failure of the embedding collaborator.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// ScopeError reports an attempted cross-scope memory access. It indicates a
// programming bug in the caller, not a runtime condition to retry.
type ScopeError struct {
	BankScope string
	Requested string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("memory scope violation: bank %q cannot access scope %q", e.BankScope, e.Requested)
}
