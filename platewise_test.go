package platewise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/chatlog"
	"github.com/platewise/platewise/model"
)

func TestNew_DefaultsRunEndToEnd(t *testing.T) {
	input := "I am vegetarian"

	routerModel := model.NewMockModel("mock-router", "mock")
	routerModel.AddResponse(input, "UPDATE_PROFILE")

	stageModel := model.NewMockModel("mock-stage", "mock")
	stageModel.AddResponse(input, "Profile updated.")

	app, err := New(stageModel, func(o *Options) {
		o.RouterModel = routerModel
	})
	require.NoError(t, err)

	answer, err := app.Execute(context.Background(), "user-1", input, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Profile updated.", answer)
}

func TestNew_ChatLogReceivesFallbackRows(t *testing.T) {
	input := "I am vegetarian"

	routerModel := model.NewMockModel("mock-router", "mock")
	routerModel.AddResponse(input, "UPDATE_PROFILE")

	stageModel := model.NewMockModel("mock-stage", "mock")
	stageModel.AddResponse(input, "Profile updated.")

	log := chatlog.NewInMemoryStore()
	app, err := New(stageModel, func(o *Options) {
		o.RouterModel = routerModel
		o.ChatLogStore = log
	})
	require.NoError(t, err)

	_, err = app.Execute(context.Background(), "user-1", input, "s-1")
	require.NoError(t, err)

	entries, err := log.Recent(context.Background(), "user-1", "s-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, input, entries[0].Content)
	assert.Equal(t, "Profile updated.", entries[1].Content)
}

func TestDefaultRegistry_ContainsEveryStageTool(t *testing.T) {
	registry := DefaultRegistry()

	for _, name := range []string{
		"save_user_preference", "recall_user_profile", "delete_user_preference",
		"get_recent_conversation", "save_meal_plan",
		"search_recipes", "search_nutrition_info", "search_usda_database",
	} {
		_, ok := registry.Get(name)
		assert.True(t, ok, "missing tool %s", name)
	}
}
