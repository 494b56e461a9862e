package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/util"
)

func TestPromptManager_UsesBuiltInDefaults(t *testing.T) {
	pm := NewPromptManager("")

	instruction := pm.Instruction("DailyMealPlanner")
	assert.Contains(t, instruction, "{{.recipe_find}}")
	assert.Contains(t, instruction, "breakfast, lunch, dinner and snacks")
}

func TestPromptManager_PrefersFileOverDefault(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom planner instruction for {{.user_id}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daily_meal_planner.txt"), []byte(custom+"\n"), 0o644))

	pm := NewPromptManager(dir)

	assert.Equal(t, custom, pm.Instruction("DailyMealPlanner"))
}

func TestPromptManager_MissingFileFallsBack(t *testing.T) {
	pm := NewPromptManager(t.TempDir())

	assert.NotEmpty(t, pm.Instruction("ProfileManager"))
}

func TestPromptManager_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "variety_check.txt"), []byte("   \n"), 0o644))

	pm := NewPromptManager(dir)

	assert.Equal(t, defaultInstructions["VarietyCheck"], pm.Instruction("VarietyCheck"))
}

// The plan-only pipeline never writes profiling_summary, so the RecipeFinder
// default must render cleanly without it.
func TestRecipeFinderDefault_RendersWithoutProfile(t *testing.T) {
	instruction := NewPromptManager("").Instruction("RecipeFinder")

	rendered, err := util.RenderTemplate(instruction, map[string]any{"user_input": "plan my lunch"})
	require.NoError(t, err)
	assert.NotContains(t, rendered, "<no value>")
	assert.Contains(t, rendered, "User profile: none on file")

	rendered, err = util.RenderTemplate(instruction, map[string]any{
		"user_input":        "plan my lunch",
		"profiling_summary": "vegetarian, no mushrooms",
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "User profile: vegetarian, no mushrooms")
}

func TestPromptManager_UnknownStage(t *testing.T) {
	pm := NewPromptManager("")

	assert.Empty(t, pm.Instruction("DoesNotExist"))
}

func TestPromptFileName(t *testing.T) {
	assert.Equal(t, "profile_manager.txt", promptFileName("ProfileManager"))
	assert.Equal(t, "variety_check.txt", promptFileName("VarietyCheck"))
}

func TestStage_ToolByName(t *testing.T) {
	s := Stage{Name: "ProfileManager"}

	_, ok := s.ToolByName("missing")
	assert.False(t, ok)
}
