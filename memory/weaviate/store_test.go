package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/platewise/platewise/core"
)

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*Store)(nil)

func TestObjectID_FormatsDigestAsUUID(t *testing.T) {
	recordID := core.MemoryRecordID("user-1", "vegetarian")
	require.Len(t, recordID, 32)

	id := objectID(recordID)
	assert.Len(t, id, 36)
	assert.Equal(t, recordID[0:8], id[0:8])
	assert.Equal(t, byte('-'), id[8])

	// Deterministic: same input, same object id.
	assert.Equal(t, id, objectID(core.MemoryRecordID("user-1", "  VEGETARIAN ")))
}

func TestParseResults_FiltersByCertainty(t *testing.T) {
	s := New(nil, nil)

	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			DefaultClass: []interface{}{
				map[string]interface{}{
					"text":     "borderline fact",
					"category": "diet",
					"kind":     core.MemoryRecordKind,
					"_additional": map[string]interface{}{
						"id":        "aaaa",
						"certainty": 0.74,
					},
				},
				map[string]interface{}{
					"text":        "relevant fact",
					"category":    "allergy",
					"kind":        core.MemoryRecordKind,
					"medicalInfo": "lactose intolerant",
					"_additional": map[string]interface{}{
						"id":        "bbbb",
						"certainty": 0.80,
					},
				},
			},
		},
	}

	results := s.parseResults(data)
	require.Len(t, results, 1)
	assert.Equal(t, "relevant fact", results[0].Content)
	assert.Equal(t, 0.80, results[0].Score)
	assert.Equal(t, "allergy", results[0].Metadata["category"])
	assert.Equal(t, "lactose intolerant", results[0].Metadata["medical_info"])
}

func TestParseResults_MalformedShapes(t *testing.T) {
	s := New(nil, nil)

	assert.Empty(t, s.parseResults(map[string]models.JSONObject{}))
	assert.Empty(t, s.parseResults(map[string]models.JSONObject{"Get": "garbage"}))
	assert.Empty(t, s.parseResults(map[string]models.JSONObject{
		"Get": map[string]interface{}{DefaultClass: []interface{}{"not-an-object"}},
	}))
}
