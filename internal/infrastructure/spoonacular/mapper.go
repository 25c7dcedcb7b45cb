package spoonacular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/recipefinder/backend/internal/domain"
)

// ingredientCDN is the provider's image host for ingredient thumbnails.
const ingredientCDN = "https://spoonacular.com/cdn/ingredients_100x100/"

// Defaults used when the search API omits timing/serving information.
const (
	defaultPrepTime  = "15 min"
	defaultCookTime  = "30 min"
	defaultTotalTime = "45 min"
	defaultServings  = 4
)

// ingredientSearchResponse is the wire shape of /food/ingredients/search.
type ingredientSearchResponse struct {
	Results []wireIngredient `json:"results"`
}

type wireIngredient struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ingredientSearchRecipe is the wire shape of /recipes/findByIngredients
// entries.
type ingredientSearchRecipe struct {
	ID                    int                 `json:"id"`
	Title                 string              `json:"title"`
	Image                 string              `json:"image"`
	UsedIngredientCount   int                 `json:"usedIngredientCount"`
	MissedIngredientCount int                 `json:"missedIngredientCount"`
	UsedIngredients       []wireRecipeIngredient `json:"usedIngredients"`
	MissedIngredients     []wireRecipeIngredient `json:"missedIngredients"`
	Likes                 int                 `json:"likes"`
}

// wireRecipeIngredient is the measured ingredient shape shared by the
// search and information endpoints.
type wireRecipeIngredient struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	OriginalName string   `json:"originalName"`
	Amount       float64  `json:"amount"`
	Unit         string   `json:"unit"`
	UnitLong     string   `json:"unitLong"`
	Original     string   `json:"original"`
	Aisle        string   `json:"aisle"`
	Image        string   `json:"image"`
	Meta         []string `json:"meta"`
}

// complexSearchResponse is the wire shape of /recipes/complexSearch.
type complexSearchResponse struct {
	Results      []recipeInformation `json:"results"`
	TotalResults int                 `json:"totalResults"`
}

// recipeInformation is the wire shape of /recipes/{id}/information.
type recipeInformation struct {
	ID                   int                    `json:"id"`
	Title                string                 `json:"title"`
	Image                string                 `json:"image"`
	Servings             int                    `json:"servings"`
	ReadyInMinutes       int                    `json:"readyInMinutes"`
	PreparationMinutes   int                    `json:"preparationMinutes"`
	CookingMinutes       int                    `json:"cookingMinutes"`
	SourceURL            string                 `json:"sourceUrl"`
	SpoonacularSourceURL string                 `json:"spoonacularSourceUrl"`
	HealthScore          float64                `json:"healthScore"`
	PricePerServing      float64                `json:"pricePerServing"`
	AnalyzedInstructions []analyzedInstruction  `json:"analyzedInstructions"`
	Instructions         string                 `json:"instructions"`
	Summary              string                 `json:"summary"`
	Cuisines             []string               `json:"cuisines"`
	DishTypes            []string               `json:"dishTypes"`
	Diets                []string               `json:"diets"`
	Occasions            []string               `json:"occasions"`
	Vegetarian           bool                   `json:"vegetarian"`
	Vegan                bool                   `json:"vegan"`
	GlutenFree           bool                   `json:"glutenFree"`
	DairyFree            bool                   `json:"dairyFree"`
	VeryHealthy          bool                   `json:"veryHealthy"`
	Cheap                bool                   `json:"cheap"`
	VeryPopular          bool                   `json:"veryPopular"`
	Sustainable          bool                   `json:"sustainable"`
	ExtendedIngredients  []wireRecipeIngredient `json:"extendedIngredients"`
}

type analyzedInstruction struct {
	Name  string            `json:"name"`
	Steps []instructionStep `json:"steps"`
}

type instructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// mapIngredients converts ingredient search results to the domain model,
// rewriting bare image names to full CDN URLs.
func mapIngredients(results []wireIngredient) []domain.Ingredient {
	ingredients := make([]domain.Ingredient, 0, len(results))
	for _, r := range results {
		ingredients = append(ingredients, domain.Ingredient{
			ID:    r.ID,
			Name:  r.Name,
			Image: ingredientCDN + r.Image,
		})
	}
	return ingredients
}

// mapIngredientSearchRecipe converts a findByIngredients entry to a
// summary. The search endpoint omits timings and servings, so documented
// defaults fill them in; match counts are left for downstream ranking.
func mapIngredientSearchRecipe(r ingredientSearchRecipe) (domain.RecipeSummary, error) {
	if r.ID == 0 || r.Title == "" {
		return domain.RecipeSummary{}, fmt.Errorf("recipe missing id or title")
	}

	ingredients := make([]string, 0, len(r.UsedIngredients)+len(r.MissedIngredients))
	for _, ing := range r.UsedIngredients {
		ingredients = append(ingredients, ing.Name)
	}
	for _, ing := range r.MissedIngredients {
		ingredients = append(ingredients, ing.Name)
	}

	return domain.RecipeSummary{
		ID:          strconv.Itoa(r.ID),
		Title:       stripHTML(r.Title),
		Description: fmt.Sprintf("A recipe using %d of your ingredients", r.UsedIngredientCount),
		Ingredients: ingredients,
		PrepTime:    defaultPrepTime,
		CookTime:    defaultCookTime,
		Servings:    defaultServings,
		ImageURL:    r.Image,
		MatchCount:  0,
	}, nil
}

// mapRecipeInformationSummary converts a full information record to the
// compact summary shape used by browse mode.
func mapRecipeInformationSummary(info recipeInformation) (domain.RecipeSummary, error) {
	if info.ID == 0 || info.Title == "" {
		return domain.RecipeSummary{}, fmt.Errorf("recipe missing id or title")
	}

	ingredients := make([]string, 0, len(info.ExtendedIngredients))
	for _, ing := range info.ExtendedIngredients {
		ingredients = append(ingredients, ing.Name)
	}

	servings := info.Servings
	if servings == 0 {
		servings = defaultServings
	}

	cookTime := defaultCookTime
	if info.CookingMinutes > 0 {
		cookTime = formatMinutes(info.CookingMinutes)
	} else if info.ReadyInMinutes > 0 {
		cookTime = formatMinutes(info.ReadyInMinutes)
	}

	return domain.RecipeSummary{
		ID:          strconv.Itoa(info.ID),
		Title:       stripHTML(info.Title),
		Description: truncate(stripHTML(info.Summary), 150),
		Ingredients: ingredients,
		PrepTime:    formatMinutesOr(info.PreparationMinutes, defaultPrepTime),
		CookTime:    cookTime,
		Servings:    servings,
		ImageURL:    info.Image,
		MatchCount:  0,
	}, nil
}

// mapRecipeInformationDetail converts a full information record to the
// detail shape served by the detail endpoint.
func mapRecipeInformationDetail(info recipeInformation) (*domain.RecipeDetail, error) {
	if info.ID == 0 || info.Title == "" {
		return nil, fmt.Errorf("recipe missing id or title")
	}

	ingredients := make([]domain.DetailedIngredient, 0, len(info.ExtendedIngredients))
	for _, ing := range info.ExtendedIngredients {
		ingredients = append(ingredients, domain.DetailedIngredient{
			ID:           ing.ID,
			Name:         ing.Name,
			OriginalName: ing.OriginalName,
			Amount:       ing.Amount,
			Unit:         ing.Unit,
			UnitLong:     ing.UnitLong,
			Original:     ing.Original,
			Aisle:        ing.Aisle,
			Image:        ingredientCDN + ing.Image,
			Meta:         ing.Meta,
		})
	}

	summary := stripHTML(info.Summary)

	totalTime := defaultTotalTime
	if info.ReadyInMinutes > 0 {
		totalTime = formatMinutes(info.ReadyInMinutes)
	}

	return &domain.RecipeDetail{
		ID:              strconv.Itoa(info.ID),
		Title:           stripHTML(info.Title),
		Description:     truncate(summary, 200),
		Summary:         summary,
		Ingredients:     ingredients,
		Instructions:    extractInstructions(info),
		PrepTime:        formatMinutesOr(info.PreparationMinutes, defaultPrepTime),
		CookTime:        formatMinutesOr(info.CookingMinutes, defaultCookTime),
		TotalTime:       totalTime,
		Servings:        info.Servings,
		ImageURL:        info.Image,
		SourceURL:       info.SourceURL,
		SpoonacularURL:  info.SpoonacularSourceURL,
		HealthScore:     info.HealthScore,
		PricePerServing: info.PricePerServing,
		Cuisines:        info.Cuisines,
		DishTypes:       info.DishTypes,
		Diets:           info.Diets,
		Occasions:       info.Occasions,
		IsVegetarian:    info.Vegetarian,
		IsVegan:         info.Vegan,
		IsGlutenFree:    info.GlutenFree,
		IsDairyFree:     info.DairyFree,
		IsVeryHealthy:   info.VeryHealthy,
		IsCheap:         info.Cheap,
		IsPopular:       info.VeryPopular,
		IsSustainable:   info.Sustainable,
	}, nil
}

// extractInstructions prefers the analyzed step list and falls back to
// splitting the raw HTML instruction string.
func extractInstructions(info recipeInformation) []domain.Instruction {
	instructions := make([]domain.Instruction, 0)

	for _, analyzed := range info.AnalyzedInstructions {
		for _, step := range analyzed.Steps {
			if step.Step == "" {
				continue
			}
			instructions = append(instructions, domain.Instruction{
				Number: step.Number,
				Step:   step.Step,
			})
		}
	}

	if len(instructions) > 0 || info.Instructions == "" {
		return instructions
	}

	text := strings.ReplaceAll(info.Instructions, "<ol>", "")
	text = strings.ReplaceAll(text, "</ol>", "")
	text = strings.ReplaceAll(text, "<li>", "")
	text = strings.ReplaceAll(text, "</li>", "\n")

	number := 1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripHTML(line))
		if line == "" {
			continue
		}
		instructions = append(instructions, domain.Instruction{
			Number: number,
			Step:   line,
		})
		number++
	}

	return instructions
}

// htmlTagRegex matches the markup Spoonacular embeds in titles,
// summaries and instruction strings.
var htmlTagRegex = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// stripHTML removes markup from an upstream text field.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(s, ""))
}

// truncate bounds s to at most limit bytes with an ellipsis, cutting on
// a rune boundary so multi-byte characters are never split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}

func formatMinutesOr(minutes int, fallback string) string {
	if minutes > 0 {
		return formatMinutes(minutes)
	}
	return fallback
}
