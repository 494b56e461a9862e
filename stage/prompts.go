package stage

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/platewise/platewise/logging"
)

// PromptManager resolves per-stage instruction templates. A template is read
// from <dir>/<snake_case_stage>.txt when present, otherwise the built-in
// default for that stage is used. Construction is total: a missing directory
// or file never fails, it just means defaults.
type PromptManager struct {
	dir    string
	logger logging.Logger
}

// PromptManagerOptions configures prompt resolution.
type PromptManagerOptions struct {
	Logger logging.Logger
}

// NewPromptManager creates a prompt manager rooted at dir. An empty dir means
// built-in defaults only.
func NewPromptManager(dir string, optFns ...func(o *PromptManagerOptions)) *PromptManager {
	opts := PromptManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &PromptManager{dir: dir, logger: opts.Logger}
}

// Instruction returns the instruction template for the named stage.
func (pm *PromptManager) Instruction(stageName string) string {
	if pm.dir != "" {
		path := filepath.Join(pm.dir, promptFileName(stageName))
		if data, err := os.ReadFile(path); err == nil {
			text := strings.TrimSpace(string(data))
			if text != "" {
				pm.logger.Debug("prompt.loaded", "stage", stageName, "path", path)
				return text
			}
			pm.logger.Warn("prompt.empty_file", "stage", stageName, "path", path)
		}
	}

	if text, ok := defaultInstructions[stageName]; ok {
		return text
	}

	pm.logger.Warn("prompt.no_default", "stage", stageName)

	return ""
}

// promptFileName converts a CamelCase stage name to its snake_case prompt
// file, e.g. ProfileManager -> profile_manager.txt.
func promptFileName(stageName string) string {
	var b strings.Builder
	for i, r := range stageName {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String() + ".txt"
}

var defaultInstructions = map[string]string{
	"ProfileManager": `You manage long-term user dietary profiles.

User ID: {{.user_id}}
User request: {{.user_input}}

Extract dietary preferences, restrictions, allergies, health conditions and
goals from the request. Save each new or changed fact with the
save_user_preference tool. Use recall_user_profile to check what is already
stored before saving.

Finish with a short summary of the user's current profile.`,

	"RecipeFinder": `Find the best recipes for the user's nutritional needs.

User profile: {{default "none on file" .profiling_summary}}
User request: {{.user_input}}

Search for recipes that match the dietary requirements and health conditions
for breakfast, lunch, dinner or snacks as requested. Use the recipe and
nutrition tools to ground your suggestions in real data.

Return a structured list of recipes with a nutritional breakdown.`,

	"DailyMealPlanner": `You plan the user's daily meals for breakfast, lunch, dinner and snacks.

Current time: {{.current_time}}
Available recipes: {{.recipe_find}}
User ID: {{.user_id}}

Generate a meal plan ensuring variety. If the user asks for a specific period
like "meal plan for lunch", generate for that period only. Otherwise use the
current time to pick the right meals.

If you are missing profile information, use recall_user_profile to query the
stored profile.

Create a detailed plan, for example "You should have oats for breakfast with
all the ingredients".`,

	"MealInstructions": `You generate detailed meal preparation instructions.

Meal plan: {{.meal_plan}}

Write the cooking steps one by one with clear instructions so that even
non-cooks can follow along and cook successfully. If you need more detail
about an ingredient, use the available tools.`,

	"VarietyCheck": `You monitor meal plans for variety and nutritional balance.

User ID: {{.user_id}}
Current meal plan: {{.meal_plan}}

Check the plan against the user's stored profile and recent history. Suggest
varieties and additional nutrients the user needs for balanced nutrition over
time. When the plan is final, persist it with the save_meal_plan tool.`,
}
