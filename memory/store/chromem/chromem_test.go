package chromem_test

import (
	"context"
	"testing"

	"github.com/echoforge/echoforge-go/memory"
	"github.com/echoforge/echoforge-go/memory/store/chromem"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *stubEmbedder) Dimensions() int { return 3 }

func TestStore_StoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the dragon sleeps": {1, 0, 0},
		"rain over docks":   {0, 1, 0},
		"dragon":            {1, 0, 0},
	}}
	store, err := chromem.New(embedder, "test_memories")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	if _, err := store.Store(ctx, "the dragon sleeps", map[string]any{"type": "beat"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.Store(ctx, "rain over docks", map[string]any{"type": "beat"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if got := store.Size(); got != 2 {
		t.Fatalf("expected size 2, got %d", got)
	}

	results, err := store.Retrieve(ctx, "dragon", 1, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "the dragon sleeps" {
		t.Errorf("expected dragon memory first, got %q", results[0].Content)
	}
	if results[0].Seq != 1 {
		t.Errorf("sequence id lost in round trip, got %d", results[0].Seq)
	}
	if got := results[0].Metadata["type"]; got != "beat" {
		t.Errorf("metadata lost in round trip, got %v", got)
	}
}

func TestStore_Filters(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"a beat": {1, 0, 0},
		"a fact": {0, 1, 0},
		"query":  {1, 0, 0},
	}}
	store, err := chromem.New(embedder, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Store(ctx, "a beat", map[string]any{"type": "beat"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Store(ctx, "a fact", map[string]any{"type": "fact"}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Retrieve(ctx, "query", 1, map[string]any{"type": "fact"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "a fact" {
		t.Errorf("filter must exclude non-matching records before ranking, got %v", results)
	}
}

func TestStore_WorksAsBankBacking(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(&stubEmbedder{}, "")
	if err != nil {
		t.Fatal(err)
	}
	bank := memory.NewBank(store, "Old Tom")

	if _, err := bank.Store(ctx, "secret about the cellar", nil); err != nil {
		t.Fatal(err)
	}

	results, err := bank.Retrieve(ctx, "cellar", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := results[0].Metadata[memory.ScopeKey]; got != "Old Tom" {
		t.Errorf("scope tag lost through chromem, got %v", got)
	}
}

func TestStore_RetrieveEmpty(t *testing.T) {
	store, err := chromem.New(&stubEmbedder{}, "")
	if err != nil {
		t.Fatal(err)
	}
	results, err := store.Retrieve(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("retrieve on empty store: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}
