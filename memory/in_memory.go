package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/platewise/platewise/core"
)

// Embedder turns text into a vector. Satisfied by the OpenAI embedding
// client; tests supply deterministic fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type storedRecord struct {
	rec    core.MemoryRecord
	vector []float32
}

// InMemoryStore is a process-local vector MemoryStore. Records are held per
// user keyed by their deterministic id, so re-saving identical text replaces
// rather than duplicates. Search embeds the query, ranks records by cosine
// similarity and drops everything at or below core.SimilarityFloor.
//
// Concurrency: protected by RWMutex. Suitable for tests and single-node
// deployments; use the weaviate backend for shared persistence.
type InMemoryStore struct {
	embedder Embedder

	mu      sync.RWMutex
	records map[string]map[string]storedRecord // userID -> recordID -> record
}

// NewInMemoryStore creates an empty store backed by the given embedder.
func NewInMemoryStore(embedder Embedder) *InMemoryStore {
	return &InMemoryStore{
		embedder: embedder,
		records:  make(map[string]map[string]storedRecord),
	}
}

// Save upserts the record under its deterministic id.
func (m *InMemoryStore) Save(ctx context.Context, rec core.MemoryRecord) error {
	vector, err := m.embedder.Embed(ctx, rec.Text)
	if err != nil {
		return core.NewPersistenceError("memory", "save", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.UserID]; !ok {
		m.records[rec.UserID] = make(map[string]storedRecord)
	}
	m.records[rec.UserID][rec.ID] = storedRecord{rec: rec, vector: vector}

	return nil
}

// Search returns the user's records most similar to the query, best first,
// capped at limit. Records scoring at or below the similarity floor are
// excluded even when that leaves fewer than limit results.
func (m *InMemoryStore) Search(ctx context.Context, userID, query string, limit int) ([]core.SearchResult, error) {
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewPersistenceError("memory", "search", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	userRecords, ok := m.records[userID]
	if !ok {
		return []core.SearchResult{}, nil
	}

	results := make([]core.SearchResult, 0, len(userRecords))
	for _, stored := range userRecords {
		score := cosineSimilarity(queryVec, stored.vector)
		if score <= core.SimilarityFloor {
			continue
		}

		metadata := map[string]any{
			"category": stored.rec.Category,
			"kind":     stored.rec.Kind,
		}
		for k, v := range stored.rec.Aux {
			metadata[k] = v
		}

		results = append(results, core.SearchResult{
			ID:       stored.rec.ID,
			Content:  stored.rec.Text,
			Score:    score,
			Metadata: metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Delete removes the record derived from (userID, text). Deleting a missing
// record is not an error.
func (m *InMemoryStore) Delete(_ context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if userRecords, ok := m.records[userID]; ok {
		delete(userRecords, core.MemoryRecordID(userID, text))
	}

	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
