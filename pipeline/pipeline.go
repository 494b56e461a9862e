// Package pipeline maps routing decisions to ordered stage lists.
package pipeline

import (
	"fmt"

	"github.com/platewise/platewise/router"
	"github.com/platewise/platewise/stage"
	"github.com/platewise/platewise/tool"
)

// stageSpec declares a stage by name plus the tool names it binds. Tools are
// resolved once at factory construction so a bad name fails at startup, not
// mid-run.
type stageSpec struct {
	name        string
	description string
	outputKey   string
	toolNames   []string
}

var stageSpecs = []stageSpec{
	{
		name:        "ProfileManager",
		description: "Extracts and persists long-term dietary profile facts",
		outputKey:   "profiling_summary",
		toolNames:   []string{"save_user_preference", "recall_user_profile", "delete_user_preference"},
	},
	{
		name:        "RecipeFinder",
		description: "Finds recipes matching the user's nutritional needs",
		outputKey:   "recipe_find",
		toolNames:   []string{"search_recipes", "search_nutrition_info", "search_usda_database"},
	},
	{
		name:        "DailyMealPlanner",
		description: "Assembles the daily meal plan from found recipes",
		outputKey:   "meal_plan",
		toolNames:   []string{"recall_user_profile", "search_recipes", "search_nutrition_info", "search_usda_database"},
	},
	{
		name:        "MealInstructions",
		description: "Generates step-by-step preparation instructions",
		outputKey:   "meal_preparations",
		toolNames:   []string{"search_nutrition_info", "search_usda_database"},
	},
	{
		name:        "VarietyCheck",
		description: "Checks variety and balance, persists the final plan",
		outputKey:   "varieties_meal",
		toolNames: []string{
			"recall_user_profile", "get_recent_conversation", "search_recipes",
			"search_nutrition_info", "search_usda_database", "save_meal_plan",
		},
	},
}

var pipelineStages = map[router.Decision][]string{
	router.UpdateProfile: {"ProfileManager"},
	router.GeneratePlan:  {"RecipeFinder", "DailyMealPlanner", "MealInstructions", "VarietyCheck"},
	router.FullFlow:      {"ProfileManager", "RecipeFinder", "DailyMealPlanner", "MealInstructions", "VarietyCheck"},
}

var pipelineNames = map[router.Decision]string{
	router.UpdateProfile: "UserProfilingChain",
	router.GeneratePlan:  "MealPlanningChain",
	router.FullFlow:      "FullWorkflowChain",
}

// Factory builds pipelines for routing decisions. All stages are constructed
// eagerly so construction failures surface at process startup.
type Factory struct {
	stages map[string]stage.Stage
}

// NewFactory resolves every declared stage against the tool registry and
// prompt manager.
func NewFactory(registry *tool.Registry, prompts *stage.PromptManager) (*Factory, error) {
	stages := make(map[string]stage.Stage, len(stageSpecs))

	for _, spec := range stageSpecs {
		tools, err := registry.Resolve(spec.toolNames)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", spec.name, err)
		}

		stages[spec.name] = stage.Stage{
			Name:        spec.name,
			Description: spec.description,
			Instruction: prompts.Instruction(spec.name),
			OutputKey:   spec.outputKey,
			Tools:       tools,
		}
	}

	return &Factory{stages: stages}, nil
}

// Build returns the pipeline for the given decision. Unknown decisions
// resolve to the full pipeline so a request is never dropped.
func (f *Factory) Build(decision router.Decision) stage.Pipeline {
	names, ok := pipelineStages[decision]
	if !ok {
		decision = router.FullFlow
		names = pipelineStages[decision]
	}

	stages := make([]stage.Stage, 0, len(names))
	for _, name := range names {
		stages = append(stages, f.stages[name])
	}

	return stage.Pipeline{Name: pipelineNames[decision], Stages: stages}
}
