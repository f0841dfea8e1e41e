// Package chromem backs a memory.Store with chromem-go, a pure Go embedded
// vector database. Compared with the default in-process VectorStore it
// persists across restarts (with a persistent DB) and scales to larger
// stores, at the cost of two contract gaps: chromem cannot delete documents,
// so capacity eviction is unsupported, and its ranking does not apply the
// recency tie-break. Stories that need those guarantees use the default
// store.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/echoforge/echoforge-go/memory"
)

// Store implements memory.Store over one chromem collection. Each Store
// instance owns its own collection, preserving the one-store-per-bank
// isolation model.
type Store struct {
	embedder   memory.Embedder
	collection *chromem.Collection

	mu      sync.Mutex
	nextSeq uint64
	size    int
}

// New creates a store with a fresh in-memory chromem collection.
func New(embedder memory.Embedder, name string) (*Store, error) {
	db := chromem.NewDB()
	if name == "" {
		name = "memories_" + uuid.New().String()
	}
	col, err := db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{
		embedder:   embedder,
		collection: col,
		nextSeq:    1,
	}, nil
}

// Stage embeds content without adding it to the collection.
func (s *Store) Stage(ctx context.Context, content string, metadata map[string]any) (*memory.Staged, error) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, &memory.EmbeddingError{Op: "store", Err: err}
	}
	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return &memory.Staged{Content: content, Metadata: md, Embedding: embedding}, nil
}

// Commit adds a staged record to the collection. chromem's add path can
// fail on malformed documents; those cannot arise from Stage output, so a
// failure here is logged and the sequence id still advances.
func (s *Store) Commit(st *memory.Staged) uint64 {
	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++
	s.mu.Unlock()

	doc := chromem.Document{
		ID:        uuid.New().String(),
		Content:   st.Content,
		Embedding: st.Embedding,
		Metadata:  flattenMetadata(st.Metadata, seq),
	}
	if err := s.collection.AddDocument(context.Background(), doc); err != nil {
		log.Printf("[CHROMEM] add document seq=%d failed: %v", seq, err)
		return seq
	}

	s.mu.Lock()
	s.size++
	s.mu.Unlock()
	return seq
}

// Store embeds and adds in one step.
func (s *Store) Store(ctx context.Context, content string, metadata map[string]any) (uint64, error) {
	st, err := s.Stage(ctx, content, metadata)
	if err != nil {
		return 0, err
	}
	return s.Commit(st), nil
}

// Retrieve queries the collection by embedding similarity. Metadata filters
// are passed to chromem as an exact-match where clause, applied before
// ranking.
func (s *Store) Retrieve(ctx context.Context, query string, topK int, filters map[string]any) ([]memory.Result, error) {
	if topK <= 0 || s.Size() == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &memory.EmbeddingError{Op: "retrieve", Err: err}
	}

	// chromem rejects nResults above the collection size.
	n := topK
	if count := s.collection.Count(); n > count {
		n = count
	}

	where := make(map[string]string, len(filters))
	for k, v := range filters {
		where[k] = flattenValue(v)
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVec, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]memory.Result, 0, len(results))
	for _, r := range results {
		md, seq := expandMetadata(r.Metadata)
		out = append(out, memory.Result{
			Content:  r.Content,
			Metadata: md,
			Score:    float64(r.Similarity),
			Seq:      seq,
		})
	}
	return out, nil
}

// Size returns the number of stored documents.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// flattenMetadata converts record metadata to chromem's string map. The
// full typed metadata rides along as JSON so retrieval can restore it.
func flattenMetadata(metadata map[string]any, seq uint64) map[string]string {
	flat := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		flat[k] = flattenValue(v)
	}
	flat["_seq"] = strconv.FormatUint(seq, 10)
	if raw, err := json.Marshal(metadata); err == nil {
		flat["_meta"] = string(raw)
	}
	return flat
}

func flattenValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

func expandMetadata(flat map[string]string) (map[string]any, uint64) {
	seq, _ := strconv.ParseUint(flat["_seq"], 10, 64)
	if raw, ok := flat["_meta"]; ok {
		md := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &md); err == nil {
			return md, seq
		}
	}
	md := make(map[string]any, len(flat))
	for k, v := range flat {
		if k == "_seq" || k == "_meta" {
			continue
		}
		md[k] = v
	}
	return md, seq
}
