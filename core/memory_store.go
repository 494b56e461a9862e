package core

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// MemoryRecordKind labels durable profile facts in the memory store.
const MemoryRecordKind = "core_profile"

// MemoryRecord is a durable user-scoped fact stored for later semantic recall.
type MemoryRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Text      string         `json:"text"`
	Category  string         `json:"category"`
	Kind      string         `json:"kind"`
	Aux       map[string]any `json:"aux,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMemoryRecord builds a record with its deterministic id and kind set.
func NewMemoryRecord(userID, text, category string, aux map[string]any) MemoryRecord {
	return MemoryRecord{
		ID:        MemoryRecordID(userID, text),
		UserID:    userID,
		Text:      text,
		Category:  category,
		Kind:      MemoryRecordKind,
		Aux:       aux,
		CreatedAt: time.Now().UTC(),
	}
}

// MemoryRecordID derives the deterministic record identifier from the owning
// user and the normalized text. Saving the same fact twice yields the same id,
// making writes idempotent upserts.
func MemoryRecordID(userID, text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := md5.Sum([]byte(userID + "-" + normalized))
	return fmt.Sprintf("%x", sum)
}

// SearchResult represents a retrieved memory item with a relevance score and
// arbitrary metadata.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// SimilarityFloor is the minimum similarity score a search hit must exceed to
// be returned. Results scoring at or below the floor are discarded.
const SimilarityFloor = 0.75

// MemoryStore defines persistence + semantic retrieval for user-scoped memory
// records. Implementations back search with vector embeddings and must apply
// the SimilarityFloor before returning results.
type MemoryStore interface {
	Save(ctx context.Context, rec MemoryRecord) error
	Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error)
	Delete(ctx context.Context, userID, text string) error
}
