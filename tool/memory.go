package tool

import (
	"fmt"
	"strings"

	"github.com/platewise/platewise/core"
)

// Memory tools expose the vector profile store to stages. Failures come back
// as result text so the model can acknowledge them; the success text for saves
// explicitly tells the model not to retry, since the write is an idempotent
// upsert and a retry loop would burn model calls for nothing.

// NewSaveUserPreferenceTool returns the save_user_preference tool.
func NewSaveUserPreferenceTool() *FunctionTool {
	return NewFunctionTool(
		"save_user_preference",
		"Save a dietary preference, restriction or goal to the user's long-term profile",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id":         map[string]any{"type": "string", "description": "Owner of the preference"},
				"preference_text": map[string]any{"type": "string", "description": "The preference to remember"},
				"category":        map[string]any{"type": "string", "description": "Preference category (diet, allergy, goal, general)"},
				"medical_info":    map[string]any{"type": "string", "description": "Related medical context, if any"},
			},
			"required": []string{"user_id", "preference_text"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			mem := toolCtx.Memory()
			if mem == nil {
				return "System Error: Memory database not active.", nil
			}

			userID, _ := args["user_id"].(string)
			text, _ := args["preference_text"].(string)
			category, _ := args["category"].(string)
			if category == "" {
				category = "general"
			}
			medical, _ := args["medical_info"].(string)

			var aux map[string]any
			if medical != "" {
				aux = map[string]any{"medical_info": medical}
			}

			rec := core.NewMemoryRecord(userID, text, category, aux)
			if err := mem.Save(toolCtx.Context(), rec); err != nil {
				return fmt.Sprintf("Error: %v", err), nil
			}

			return fmt.Sprintf(
				"✅ SUCCESS: User preference saved successfully with ID: %s. Do not retry this operation.",
				rec.ID,
			), nil
		},
	)
}

// NewRecallUserProfileTool returns the recall_user_profile tool.
func NewRecallUserProfileTool() *FunctionTool {
	return NewFunctionTool(
		"recall_user_profile",
		"Retrieve stored preferences and restrictions relevant to the given context",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string", "description": "Owner of the profile"},
				"context": map[string]any{"type": "string", "description": "What the profile is needed for"},
			},
			"required": []string{"user_id", "context"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			mem := toolCtx.Memory()
			if mem == nil {
				return "No profile data (DB inactive).", nil
			}

			userID, _ := args["user_id"].(string)
			queryCtx, _ := args["context"].(string)

			results, err := mem.Search(toolCtx.Context(), userID, queryCtx, 5)
			if err != nil {
				return fmt.Sprintf("Error recalling profile: %v", err), nil
			}
			if len(results) == 0 {
				return "No specific preferences found.", nil
			}

			lines := []string{"User Profile:"}
			for _, r := range results {
				category := "info"
				if c, ok := r.Metadata["category"].(string); ok && c != "" {
					category = c
				}
				lines = append(lines, fmt.Sprintf("- [%s] %s", category, r.Content))
			}

			return strings.Join(lines, "\n"), nil
		},
	)
}

// deleteUserPreferenceArgs doubles as the schema source: the parameter schema
// is derived from its json and description tags.
type deleteUserPreferenceArgs struct {
	UserID         string `json:"user_id" description:"Owner of the preference"`
	PreferenceText string `json:"preference_text" description:"The exact preference text to forget"`
}

// NewDeleteUserPreferenceTool returns the delete_user_preference tool.
func NewDeleteUserPreferenceTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		"delete_user_preference",
		"Remove a previously saved preference when the user changes their mind",
		deleteUserPreferenceArgs{},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			mem := toolCtx.Memory()
			if mem == nil {
				return "System Error: Memory database not active.", nil
			}

			userID, _ := args["user_id"].(string)
			text, _ := args["preference_text"].(string)

			if err := mem.Delete(toolCtx.Context(), userID, text); err != nil {
				return fmt.Sprintf("Error deleting preference: %v", err), nil
			}

			return "Preference deleted.", nil
		},
	)
}
