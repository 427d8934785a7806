package linking

import (
	"strings"
)

// Token separators for compound page identities.
const (
	ComparisonSeparator = "-vs-"
	BestSeparator       = "-tools-for-"
)

// Pair is an ordered pair of item slugs parsed from a comparison token.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// BestKey identifies a best-for page by category and use-case slug.
type BestKey struct {
	Category string `json:"category"`
	UseCase  string `json:"use_case"`
}

// ParseComparison splits an "a-vs-b" token into its two slugs.
// Tokens without exactly two non-empty parts, or comparing a slug with
// itself, do not match.
func ParseComparison(token string) (Pair, bool) {
	parts := strings.Split(token, ComparisonSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return Pair{}, false
	}
	return Pair{Left: parts[0], Right: parts[1]}, true
}

// ParseBest splits a "{category}-tools-for-{use-case}" token at the first
// occurrence of the separator. Both halves must be non-empty.
func ParseBest(token string) (BestKey, bool) {
	idx := strings.Index(token, BestSeparator)
	if idx < 0 {
		return BestKey{}, false
	}
	category := token[:idx]
	useCase := token[idx+len(BestSeparator):]
	if category == "" || useCase == "" {
		return BestKey{}, false
	}
	return BestKey{Category: category, UseCase: useCase}, true
}

// ToolPath returns the item page path.
func ToolPath(slug string) string {
	return "/tools/" + slug
}

// AlternativesPath returns the alternatives hub path for an item.
func AlternativesPath(slug string) string {
	return "/tools/" + slug + "/alternatives"
}

// ComparisonToken returns the canonical "a-vs-b" token. Slugs are ordered
// alphabetically so a-vs-b and b-vs-a share one page.
func ComparisonToken(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ComparisonSeparator + b
}

// ComparisonPath returns the canonical comparison path.
func ComparisonPath(a, b string) string {
	return "/compare/" + ComparisonToken(a, b)
}

// CategoryPath returns the category hub path.
func CategoryPath(slug string) string {
	return "/categories/" + slug
}

// UseCasePath returns the use-case page path.
func UseCasePath(slug string) string {
	return "/use-cases/" + slug
}

// BestToken returns the "{category}-tools-for-{use-case}" token.
func BestToken(categorySlug, useCaseSlug string) string {
	return categorySlug + BestSeparator + useCaseSlug
}

// BestPath returns the best-for page path for a category and use-case.
func BestPath(categorySlug, useCaseSlug string) string {
	return "/best/" + BestToken(categorySlug, useCaseSlug)
}
