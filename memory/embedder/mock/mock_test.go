package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/echoforge/echoforge-go/memory/embedder/mock"
)

func TestEmbedder_Deterministic(t *testing.T) {
	e := mock.New(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "the dragon sleeps")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "the dragon sleeps")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("unexpected dimensions %d/%d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at %d", i)
		}
	}

	c, err := e.Embed(ctx, "rain over docks")
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestEmbedder_UnitNorm(t *testing.T) {
	e := mock.New(0) // falls back to DefaultDimensions
	if e.Dimensions() != mock.DefaultDimensions {
		t.Fatalf("expected default dims, got %d", e.Dimensions())
	}

	vec, err := e.Embed(context.Background(), "anything at all")
	if err != nil {
		t.Fatal(err)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("expected unit vector, norm^2=%f", norm)
	}
}
