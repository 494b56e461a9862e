// Package weaviate backs core.MemoryStore with a Weaviate vector database.
// Records carry externally computed embedding vectors, so the class needs no
// vectorizer module.
package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/platewise/platewise/core"
	"github.com/platewise/platewise/logging"
	"github.com/platewise/platewise/memory"
)

// DefaultClass is the Weaviate class used for profile facts.
const DefaultClass = "UserProfileFact"

// Options configures the store.
type Options struct {
	Class  string
	Logger logging.Logger
}

// Store implements core.MemoryStore on a Weaviate instance. Record ids are
// deterministic, so saves are idempotent upserts.
type Store struct {
	client   *weaviate.Client
	embedder memory.Embedder
	opts     Options
}

// New creates a store from an existing Weaviate client and embedder.
func New(client *weaviate.Client, embedder memory.Embedder, optFns ...func(o *Options)) *Store {
	opts := Options{
		Class:  DefaultClass,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{client: client, embedder: embedder, opts: opts}
}

// NewFromConfig dials a Weaviate instance at scheme://host.
func NewFromConfig(host, scheme string, embedder memory.Embedder, optFns ...func(o *Options)) (*Store, error) {
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client: %w", err)
	}

	return New(client, embedder, optFns...), nil
}

// classSchema declares the profile fact class. Vectors are supplied by the
// embedder, so the class runs without a vectorizer module.
func classSchema(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "Long-term user dietary profile facts with external embeddings.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "userId", DataType: []string{"text"}, Description: "Owning user id."},
			{Name: "text", DataType: []string{"text"}, Description: "The stored preference text."},
			{Name: "category", DataType: []string{"text"}, Description: "Preference category."},
			{Name: "kind", DataType: []string{"text"}, Description: "Record kind label."},
			{Name: "medicalInfo", DataType: []string{"text"}, Description: "Optional medical context."},
			{Name: "createdAt", DataType: []string{"text"}, Description: "RFC3339 creation time."},
		},
	}
}

// EnsureSchema creates the class when it does not exist yet. An existing class
// is left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(s.opts.Class).Do(ctx)
	if err == nil {
		s.opts.Logger.Debug("weaviate.schema.exists", "class", s.opts.Class)
		return nil
	}

	if err := s.client.Schema().ClassCreator().WithClass(classSchema(s.opts.Class)).Do(ctx); err != nil {
		return core.NewPersistenceError("weaviate", "ensure_schema", err)
	}

	s.opts.Logger.Info("weaviate.schema.created", "class", s.opts.Class)

	return nil
}

// objectID renders the record's md5-derived id in UUID form, which Weaviate
// requires for object ids. The grouping is cosmetic; the digest is unchanged.
func objectID(recordID string) string {
	if len(recordID) != 32 {
		return recordID
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		recordID[0:8], recordID[8:12], recordID[12:16], recordID[16:20], recordID[20:32])
}

// Save embeds the record text and upserts the object under its deterministic
// id. An existing object is replaced, never duplicated.
func (s *Store) Save(ctx context.Context, rec core.MemoryRecord) error {
	vector, err := s.embedder.Embed(ctx, rec.Text)
	if err != nil {
		return core.NewPersistenceError("weaviate", "save", err)
	}

	properties := map[string]interface{}{
		"userId":    rec.UserID,
		"text":      rec.Text,
		"category":  rec.Category,
		"kind":      rec.Kind,
		"createdAt": rec.CreatedAt.Format(time.RFC3339),
	}
	if medical, ok := rec.Aux["medical_info"].(string); ok && medical != "" {
		properties["medicalInfo"] = medical
	}

	id := objectID(rec.ID)

	// No create-or-replace primitive, so clear any previous object first.
	// Deleting a missing id fails harmlessly.
	if err := s.client.Data().Deleter().
		WithClassName(s.opts.Class).
		WithID(id).
		Do(ctx); err != nil {
		s.opts.Logger.Debug("weaviate.save.no_previous_object", "id", id)
	}

	_, err = s.client.Data().Creator().
		WithClassName(s.opts.Class).
		WithID(id).
		WithProperties(properties).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return core.NewPersistenceError("weaviate", "save", err)
	}

	s.opts.Logger.Debug("weaviate.save", "id", id, "user_id", rec.UserID)

	return nil
}

// Search embeds the query and runs a nearVector search scoped to the user's
// profile facts. Hits with certainty at or below the similarity floor are
// dropped.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]core.SearchResult, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewPersistenceError("weaviate", "search", err)
	}

	userFilter := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	kindFilter := filters.Where().
		WithPath([]string{"kind"}).
		WithOperator(filters.Equal).
		WithValueString(core.MemoryRecordKind)

	combined := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{userFilter, kindFilter})

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "category"},
		{Name: "kind"},
		{Name: "medicalInfo"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.opts.Class).
		WithFields(fields...).
		WithWhere(combined).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, core.NewPersistenceError("weaviate", "search", err)
	}
	if len(result.Errors) > 0 {
		return nil, core.NewPersistenceError("weaviate", "search",
			fmt.Errorf("graphql: %s", result.Errors[0].Message))
	}

	return s.parseResults(result.Data), nil
}

// Delete removes the object derived from (userID, text). A missing object is
// not an error.
func (s *Store) Delete(ctx context.Context, userID, text string) error {
	id := objectID(core.MemoryRecordID(userID, text))

	if err := s.client.Data().Deleter().
		WithClassName(s.opts.Class).
		WithID(id).
		Do(ctx); err != nil {
		s.opts.Logger.Debug("weaviate.delete.miss", "id", id, "user_id", userID)
	}

	return nil
}

// parseResults walks the untyped GraphQL response shape
// Data["Get"][class] -> []object.
func (s *Store) parseResults(data map[string]models.JSONObject) []core.SearchResult {
	results := []core.SearchResult{}

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	objects, ok := get[s.opts.Class].([]interface{})
	if !ok {
		return results
	}

	for _, raw := range objects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		text, _ := obj["text"].(string)
		category, _ := obj["category"].(string)
		kind, _ := obj["kind"].(string)

		var id string
		var certainty float64
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			id, _ = additional["id"].(string)
			if c, ok := additional["certainty"].(float64); ok {
				certainty = c
			}
		}

		if certainty <= core.SimilarityFloor {
			continue
		}

		metadata := map[string]any{"category": category, "kind": kind}
		if medical, ok := obj["medicalInfo"].(string); ok && medical != "" {
			metadata["medical_info"] = medical
		}

		results = append(results, core.SearchResult{
			ID:       id,
			Content:  text,
			Score:    certainty,
			Metadata: metadata,
		})
	}

	return results
}
