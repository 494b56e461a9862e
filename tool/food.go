package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platewise/platewise/core"
)

// Food data tools call external nutrition APIs. Missing credentials and API
// failures are reported as tool result text rather than errors so a dead
// upstream degrades the answer instead of failing the pipeline.

const foodRequestTimeout = 10 * time.Second

// FoodToolOptions configures the external food data tools. BaseURL overrides
// exist for tests; the zero values target the public endpoints.
type FoodToolOptions struct {
	NutritionixAppID  string
	NutritionixAPIKey string
	SpoonacularAPIKey string
	USDAAPIKey        string

	NutritionixBaseURL string
	SpoonacularBaseURL string
	USDABaseURL        string

	HTTPClient *http.Client
}

func newFoodToolOptions(optFns ...func(o *FoodToolOptions)) FoodToolOptions {
	opts := FoodToolOptions{
		NutritionixBaseURL: "https://trackapi.nutritionix.com",
		SpoonacularBaseURL: "https://api.spoonacular.com",
		USDABaseURL:        "https://api.nal.usda.gov",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: foodRequestTimeout}
	}
	return opts
}

// NewSearchNutritionInfoTool returns the search_nutrition_info tool backed by
// the Nutritionix natural language nutrients endpoint.
func NewSearchNutritionInfoTool(optFns ...func(o *FoodToolOptions)) *FunctionTool {
	opts := newFoodToolOptions(optFns...)

	return NewFunctionTool(
		"search_nutrition_info",
		"Look up calorie and macro information for a food description",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Natural language food description, e.g. '2 eggs and toast'"},
			},
			"required": []string{"query"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			if opts.NutritionixAppID == "" || opts.NutritionixAPIKey == "" {
				return "Configuration Error: Missing API Keys.", nil
			}

			query, _ := args["query"].(string)

			body, err := json.Marshal(map[string]string{"query": query})
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}

			req, err := http.NewRequestWithContext(
				toolCtx.Context(),
				http.MethodPost,
				opts.NutritionixBaseURL+"/v2/natural/nutrients",
				bytes.NewReader(body),
			)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			req.Header.Set("x-app-id", opts.NutritionixAppID)
			req.Header.Set("x-app-key", opts.NutritionixAPIKey)
			req.Header.Set("Content-Type", "application/json")

			resp, err := opts.HTTPClient.Do(req)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return "No nutrition data found.", nil
			}

			var payload struct {
				Foods []struct {
					FoodName string  `json:"food_name"`
					Calories float64 `json:"nf_calories"`
					ProteinG float64 `json:"nf_protein"`
				} `json:"foods"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			if len(payload.Foods) == 0 {
				return "No nutrition data found.", nil
			}

			lines := make([]string, 0, len(payload.Foods))
			for _, f := range payload.Foods {
				lines = append(lines, fmt.Sprintf("%s: %.0fkcal, P:%.1fg", f.FoodName, f.Calories, f.ProteinG))
			}

			return strings.Join(lines, "\n"), nil
		},
	)
}

// NewSearchRecipesTool returns the search_recipes tool backed by the
// Spoonacular complex search endpoint.
func NewSearchRecipesTool(optFns ...func(o *FoodToolOptions)) *FunctionTool {
	opts := newFoodToolOptions(optFns...)

	return NewFunctionTool(
		"search_recipes",
		"Search recipes matching a query and optional diet",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Recipe search terms"},
				"diet":  map[string]any{"type": "string", "description": "Optional diet filter, e.g. vegetarian"},
			},
			"required": []string{"query"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			if opts.SpoonacularAPIKey == "" {
				return "Configuration Error: Missing API Key.", nil
			}

			query, _ := args["query"].(string)
			diet, _ := args["diet"].(string)

			params := url.Values{}
			params.Set("apiKey", opts.SpoonacularAPIKey)
			params.Set("query", query)
			params.Set("number", "3")
			params.Set("addRecipeNutrition", "true")
			if diet != "" {
				params.Set("diet", diet)
			}

			req, err := http.NewRequestWithContext(
				toolCtx.Context(),
				http.MethodGet,
				opts.SpoonacularBaseURL+"/recipes/complexSearch?"+params.Encode(),
				nil,
			)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}

			resp, err := opts.HTTPClient.Do(req)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			defer resp.Body.Close()

			var payload struct {
				Results []struct {
					Title          string `json:"title"`
					ReadyInMinutes int    `json:"readyInMinutes"`
				} `json:"results"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			if len(payload.Results) == 0 {
				return "No recipes found.", nil
			}

			lines := make([]string, 0, len(payload.Results))
			for _, r := range payload.Results {
				lines = append(lines, fmt.Sprintf("%s (Ready in %dm)", r.Title, r.ReadyInMinutes))
			}

			return strings.Join(lines, "\n"), nil
		},
	)
}

// NewSearchUSDADatabaseTool returns the search_usda_database tool backed by
// the USDA FoodData Central search endpoint.
func NewSearchUSDADatabaseTool(optFns ...func(o *FoodToolOptions)) *FunctionTool {
	opts := newFoodToolOptions(optFns...)

	return NewFunctionTool(
		"search_usda_database",
		"Search the USDA FoodData Central database for food descriptions",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Food search terms"},
			},
			"required": []string{"query"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			if opts.USDAAPIKey == "" {
				return "Configuration Error: Missing USDA Key.", nil
			}

			query, _ := args["query"].(string)

			params := url.Values{}
			params.Set("query", query)
			params.Set("pageSize", "3")
			params.Set("api_key", opts.USDAAPIKey)

			req, err := http.NewRequestWithContext(
				toolCtx.Context(),
				http.MethodGet,
				opts.USDABaseURL+"/fdc/v1/foods/search?"+params.Encode(),
				nil,
			)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}

			resp, err := opts.HTTPClient.Do(req)
			if err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			defer resp.Body.Close()

			var payload struct {
				Foods []struct {
					Description string `json:"description"`
				} `json:"foods"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Sprintf("API Error: %v", err), nil
			}
			if len(payload.Foods) == 0 {
				return "No foods found.", nil
			}

			lines := make([]string, 0, len(payload.Foods))
			for _, f := range payload.Foods {
				lines = append(lines, fmt.Sprintf("- %s", f.Description))
			}

			return strings.Join(lines, "\n"), nil
		},
	)
}
