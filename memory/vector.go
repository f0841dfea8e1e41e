package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
)

// Config holds VectorStore configuration.
type Config struct {
	// Capacity caps the record count. When a commit would exceed it, the
	// oldest records by sequence id are evicted first (FIFO). Retention is
	// purely age-based and never looks at retrieval frequency, so relevance
	// ranking stays independent of it. Zero means unbounded.
	Capacity int
}

// DefaultConfig matches the original engine's per-story memory cap.
var DefaultConfig = &Config{
	Capacity: 1000,
}

// VectorStore is an append-only in-memory similarity index. Retrieval
// cosine-ranks the query against every stored vector; ties are broken by
// most-recent sequence id first.
type VectorStore struct {
	embedder Embedder
	config   *Config

	mu      sync.RWMutex
	records []Record // ascending sequence order
	nextSeq uint64
}

// NewVectorStore creates a store backed by the given embedder.
func NewVectorStore(embedder Embedder, config *Config) *VectorStore {
	if config == nil {
		config = DefaultConfig
	}
	return &VectorStore{
		embedder: embedder,
		config:   config,
		nextSeq:  1,
	}
}

// Stage embeds content into a pending record. No store state changes; a
// failed embedding leaves nothing behind.
func (s *VectorStore) Stage(ctx context.Context, content string, metadata map[string]any) (*Staged, error) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, &EmbeddingError{Op: "store", Err: err}
	}
	return &Staged{
		Content:   content,
		Metadata:  copyMetadata(metadata),
		Embedding: embedding,
	}, nil
}

// Commit appends a staged record, evicting the oldest records first if the
// append would exceed capacity.
func (s *VectorStore) Commit(st *Staged) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Capacity > 0 {
		for len(s.records) >= s.config.Capacity {
			evicted := s.records[0]
			s.records = s.records[1:]
			log.Printf("[MEMORY] evicted record seq=%d (capacity %d)", evicted.Seq, s.config.Capacity)
		}
	}

	seq := s.nextSeq
	s.nextSeq++
	s.records = append(s.records, Record{
		Content:   st.Content,
		Metadata:  st.Metadata,
		Embedding: st.Embedding,
		Seq:       seq,
	})
	return seq
}

// Store embeds and appends in one step.
func (s *VectorStore) Store(ctx context.Context, content string, metadata map[string]any) (uint64, error) {
	st, err := s.Stage(ctx, content, metadata)
	if err != nil {
		return 0, err
	}
	return s.Commit(st), nil
}

// Retrieve returns up to topK records ranked by cosine similarity to query,
// most-relevant first. Metadata filters are applied before ranking, never
// after truncation. Equal scores order by higher sequence id (recency bias).
func (s *VectorStore) Retrieve(ctx context.Context, query string, topK int, filters map[string]any) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	empty := len(s.records) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Op: "retrieve", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.records))
	for _, r := range s.records {
		if !matchesFilters(r.Metadata, filters) {
			continue
		}
		results = append(results, Result{
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    cosine(queryVec, r.Embedding),
			Seq:      r.Seq,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq > results[j].Seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Size returns the stored record count.
func (s *VectorStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Export copies all records in sequence order for persistence.
func (s *VectorStore) Export() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = Record{
			Content:   r.Content,
			Metadata:  copyMetadata(r.Metadata),
			Embedding: append([]float32(nil), r.Embedding...),
			Seq:       r.Seq,
		}
	}
	return out
}

// Import replaces the store's contents with previously exported records.
// Records must arrive in ascending sequence order.
func (s *VectorStore) Import(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxSeq uint64
	imported := make([]Record, 0, len(records))
	for i, r := range records {
		if r.Seq <= maxSeq {
			return fmt.Errorf("import record %d: sequence %d out of order", i, r.Seq)
		}
		maxSeq = r.Seq
		imported = append(imported, Record{
			Content:   r.Content,
			Metadata:  copyMetadata(r.Metadata),
			Embedding: append([]float32(nil), r.Embedding...),
			Seq:       r.Seq,
		})
	}
	s.records = imported
	s.nextSeq = maxSeq + 1
	return nil
}

// matchesFilters reports whether metadata satisfies every filter entry with
// an exact match.
func matchesFilters(metadata, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score zero rather than erroring; the store owns its
// dimensionality and mismatches cannot occur through the public API.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func copyMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
