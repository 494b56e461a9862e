package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platewise/platewise/core"
)

func contentEvent(text string) core.Event {
	return core.NewMessageEvent("DailyMealPlanner", text)
}

func TestAggregator_JoinsAllChunks(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(contentEvent("Here is your plan..."))
	agg.Observe(core.NewFunctionCallEvent("DailyMealPlanner", "save_meal_plan", `{}`))
	agg.Observe(core.NewFunctionResponseEvent("DailyMealPlanner", "fc-1", "save_meal_plan", "ok", nil))
	agg.Observe(contentEvent("Saved!"))

	assert.Equal(t, "Here is your plan...\n\nSaved!", agg.Result())
}

func TestAggregator_DropsNoiseChunks(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(contentEvent(""))
	agg.Observe(contentEvent("None"))
	agg.Observe(contentEvent("real content"))

	assert.Equal(t, "real content", agg.Result())
}

func TestAggregator_SentinelWhenOnlyControlEvents(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(core.NewFunctionCallEvent("VarietyCheck", "recall_user_profile", `{}`))
	agg.Observe(core.NewFunctionResponseEvent("VarietyCheck", "fc-1", "recall_user_profile", "ok", nil))
	agg.Observe(contentEvent("None"))

	assert.Equal(t, NoResponseSentinel, agg.Result())
}

func TestAggregator_IgnoresPartialFragments(t *testing.T) {
	agg := NewAggregator()

	partial := contentEvent("frag")
	isPartial := true
	partial.Partial = &isPartial
	agg.Observe(partial)

	agg.Observe(contentEvent("full answer"))

	assert.Equal(t, "full answer", agg.Result())
}

func TestAggregator_IgnoresNonAssistantContent(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(core.NewUserMessageEvent("run-1", "user text"))
	agg.Observe(contentEvent("assistant text"))

	assert.Equal(t, "assistant text", agg.Result())
}
