package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/recipefinder/backend/internal/domain"
)

// multipleSpacesRegex collapses runs of whitespace during normalization.
var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// Matcher ranks candidate recipes by ingredient overlap with the user's
// pantry. It is pure computation: no I/O, no shared mutable state.
type Matcher struct{}

// NewMatcher creates a new matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// rankedRecipe pairs a candidate with its request-scoped scores.
type rankedRecipe struct {
	recipe     domain.RecipeSummary
	matchCount int
	matchPct   float64
}

// Rank scores every candidate against the user's ingredient list and
// returns a new slice sorted by match percentage descending, match count
// descending, then id ascending. An empty user list skips ranking and
// preserves upstream order with zero match counts (browse mode).
func (m *Matcher) Rank(userIngredients []string, candidates []domain.RecipeSummary) []domain.RecipeSummary {
	ranked := make([]domain.RecipeSummary, len(candidates))
	copy(ranked, candidates)

	userSet := normalizeSet(userIngredients)
	if len(userSet) == 0 {
		for i := range ranked {
			ranked[i].MatchCount = 0
		}
		return ranked
	}

	scored := make([]rankedRecipe, 0, len(ranked))
	for _, candidate := range ranked {
		candidateSet := normalizeSet(candidate.Ingredients)

		matchCount := 0
		for name := range candidateSet {
			if userSet[name] {
				matchCount++
			}
		}

		// Guard the empty-ingredient candidate: percentage is 0, not NaN
		matchPct := 0.0
		if len(candidateSet) > 0 {
			matchPct = float64(matchCount) / float64(len(candidateSet))
		}

		candidate.MatchCount = matchCount
		scored = append(scored, rankedRecipe{
			recipe:     candidate,
			matchCount: matchCount,
			matchPct:   matchPct,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].matchPct != scored[j].matchPct {
			return scored[i].matchPct > scored[j].matchPct
		}
		if scored[i].matchCount != scored[j].matchCount {
			return scored[i].matchCount > scored[j].matchCount
		}
		return idLess(scored[i].recipe.ID, scored[j].recipe.ID)
	})

	for i, s := range scored {
		ranked[i] = s.recipe
	}
	return ranked
}

// NormalizeIngredient reduces an ingredient name to its comparison form:
// lowercased, trimmed, whitespace collapsed, trailing plural suffix
// stripped from the last word. Applied uniformly to both user and recipe
// ingredient lists so lookups stay symmetric.
func NormalizeIngredient(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = multipleSpacesRegex.ReplaceAllString(normalized, " ")
	if normalized == "" {
		return ""
	}

	words := strings.Split(normalized, " ")
	words[len(words)-1] = singularize(words[len(words)-1])
	return strings.Join(words, " ")
}

// singularize strips common plural suffixes. Intentionally conservative:
// short tokens are left alone so words like "gas" survive.
func singularize(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 4 && (strings.HasSuffix(word, "oes") ||
		strings.HasSuffix(word, "ches") || strings.HasSuffix(word, "shes") ||
		strings.HasSuffix(word, "sses") || strings.HasSuffix(word, "xes")):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// normalizeSet builds the deduplicated normalized-name set for a list.
func normalizeSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if normalized := NormalizeIngredient(name); normalized != "" {
			set[normalized] = true
		}
	}
	return set
}

// idLess orders recipe ids numerically when both parse as integers
// (upstream ids are numeric strings), falling back to lexicographic.
func idLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
