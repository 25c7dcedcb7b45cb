package domain

// Ingredient represents a single ingredient from the upstream catalog.
// Identity is the upstream id; values are immutable once fetched.
type Ingredient struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// RecipeSummary is the compact recipe shape used by search and browse
// responses. MatchCount is request-scoped: it depends on the querying
// user's ingredient list and is recomputed per request, never cached.
type RecipeSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	PrepTime    string   `json:"prepTime"`
	CookTime    string   `json:"cookTime"`
	Servings    int      `json:"servings"`
	ImageURL    string   `json:"imageUrl"`
	MatchCount  int      `json:"matchCount"`
}

// RecipeDetail is the full recipe record served by the detail endpoint.
// It is a flat superset of RecipeSummary with quantities, instructions
// and diet flags, immutable per upstream id except for cache refresh.
type RecipeDetail struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Summary         string               `json:"summary"`
	Ingredients     []DetailedIngredient `json:"ingredients"`
	Instructions    []Instruction        `json:"instructions"`
	PrepTime        string               `json:"prepTime"`
	CookTime        string               `json:"cookTime"`
	TotalTime       string               `json:"totalTime"`
	Servings        int                  `json:"servings"`
	ImageURL        string               `json:"imageUrl"`
	SourceURL       string               `json:"sourceUrl"`
	SpoonacularURL  string               `json:"spoonacularUrl"`
	HealthScore     float64              `json:"healthScore"`
	PricePerServing float64              `json:"pricePerServing"`
	Cuisines        []string             `json:"cuisines"`
	DishTypes       []string             `json:"dishTypes"`
	Diets           []string             `json:"diets"`
	Occasions       []string             `json:"occasions"`
	IsVegetarian    bool                 `json:"isVegetarian"`
	IsVegan         bool                 `json:"isVegan"`
	IsGlutenFree    bool                 `json:"isGlutenFree"`
	IsDairyFree     bool                 `json:"isDairyFree"`
	IsVeryHealthy   bool                 `json:"isVeryHealthy"`
	IsCheap         bool                 `json:"isCheap"`
	IsPopular       bool                 `json:"isPopular"`
	IsSustainable   bool                 `json:"isSustainable"`
}

// DetailedIngredient carries the measured form of a recipe ingredient.
type DetailedIngredient struct {
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

// Instruction is a single ordered cooking step.
type Instruction struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// RecipeSearchRequest is the request body accepted by the recipe search
// endpoint. An empty ingredient list means "browse all recipes".
type RecipeSearchRequest struct {
	Ingredients []string `json:"ingredients"`
}
