package memory

import (
	"context"
	"math"
	"testing"

	"github.com/platewise/platewise/core"
)

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*InMemoryStore)(nil)

// fakeEmbedder returns preconfigured unit vectors per text. Cosine similarity
// between unit vectors is their dot product, so scores are exact.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1}, nil
}

// unitVec builds a 2d unit vector whose dot product with [1,0] equals score.
func unitVec(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

func TestSearch_AppliesSimilarityFloor(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query":      {1, 0},
		"borderline": unitVec(0.74),
		"relevant":   unitVec(0.80),
	}}
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Save(ctx, core.NewMemoryRecord("u1", "borderline", "diet", nil)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, core.NewMemoryRecord("u1", "relevant", "diet", nil)); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "u1", "query", 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result above floor, got %d", len(results))
	}
	if results[0].Content != "relevant" {
		t.Fatalf("unexpected result: %q", results[0].Content)
	}
	if results[0].Score <= core.SimilarityFloor {
		t.Fatalf("returned score %v at or below floor", results[0].Score)
	}
}

func TestSearch_OrdersByScoreAndHonorsLimit(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"good":  unitVec(0.85),
		"best":  unitVec(0.95),
		"ok":    unitVec(0.80),
	}}
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	for _, text := range []string{"good", "best", "ok"} {
		if err := store.Save(ctx, core.NewMemoryRecord("u1", text, "general", nil)); err != nil {
			t.Fatal(err)
		}
	}

	results, err := store.Search(ctx, "u1", "query", 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "best" || results[1].Content != "good" {
		t.Fatalf("unexpected order: %q, %q", results[0].Content, results[1].Content)
	}
}

func TestSave_IdempotentUpsert(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query":              {1, 0},
		"vegetarian, no soy": unitVec(0.9),
	}}
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	first := core.NewMemoryRecord("u1", "vegetarian, no soy", "diet", nil)
	second := core.NewMemoryRecord("u1", "vegetarian, no soy", "allergy", nil)
	if first.ID != second.ID {
		t.Fatalf("identical text produced different ids: %s vs %s", first.ID, second.ID)
	}

	if err := store.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "u1", "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected upsert, got %d records", len(results))
	}
	if results[0].Metadata["category"] != "allergy" {
		t.Fatalf("expected latest save to win, got %v", results[0].Metadata["category"])
	}
}

func TestSearch_ScopedToUser(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"vegan": unitVec(0.9),
	}}
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Save(ctx, core.NewMemoryRecord("alice", "vegan", "diet", nil)); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "bob", "query", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("records leaked across users: %v", results)
	}
}

func TestDelete_RemovesByNormalizedText(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"vegan": unitVec(0.9),
	}}
	store := NewInMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Save(ctx, core.NewMemoryRecord("u1", "vegan", "diet", nil)); err != nil {
		t.Fatal(err)
	}

	// Normalization means the deletion text need not match byte for byte.
	if err := store.Delete(ctx, "u1", "  VEGAN "); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "u1", "query", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected record deleted, got %v", results)
	}

	if err := store.Delete(ctx, "u1", "never saved"); err != nil {
		t.Fatalf("deleting a missing record must not fail: %v", err)
	}
}

func TestCosineSimilarity_DegenerateVectors(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Fatalf("zero vectors should score 0, got %v", got)
	}
}
