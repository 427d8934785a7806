package ranking

import (
	"math"
	"strings"
)

// normalizeSet lower-cases and trims values, dropping blanks and duplicates.
func normalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the normalized sets.
// Two empty sets have similarity 0, never NaN.
func Jaccard(a, b []string) float64 {
	setA := normalizeSet(a)
	setB := normalizeSet(b)

	inter := intersection(setA, setB)
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// IntersectionCount returns the number of values shared by a and b after normalization.
func IntersectionCount(a, b []string) int {
	return intersection(normalizeSet(a), normalizeSet(b))
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for v := range a {
		if _, ok := b[v]; ok {
			n++
		}
	}
	return n
}

// ClampCurated limits a manual curated score to [CuratedMin, CuratedMax].
func ClampCurated(score float64, w AlternativeWeights) float64 {
	return math.Max(w.CuratedMin, math.Min(w.CuratedMax, score))
}

// RoundScore rounds a score to one decimal place.
func RoundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

// AlternativeParams holds the per-candidate inputs to ScoreAlternative.
type AlternativeParams struct {
	UseCaseOverlap     float64 // Jaccard over use-case slugs [0, 1]
	AudienceOverlap    float64 // Jaccard over target audience [0, 1]
	FeatureOverlap     float64 // Jaccard over key features [0, 1]
	SharedIntegrations int     // Raw shared integration count
	Featured           bool    // Candidate is flagged featured
	Curated            bool    // Candidate has a curated edge from the source
	ManualScore        float64 // Curated manual score, used only when Curated is true
}

// ScoreAlternative computes the final score of a candidate, rounded to one decimal.
// A nil weights argument uses DefaultWeights.
func ScoreAlternative(p AlternativeParams, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	w := weights.Alternatives

	integrations := p.SharedIntegrations
	if integrations > w.IntegrationCap {
		integrations = w.IntegrationCap
	}

	score := p.UseCaseOverlap*w.UseCase +
		p.AudienceOverlap*w.Audience +
		p.FeatureOverlap*w.Features +
		float64(integrations)*w.IntegrationMatch

	if p.Featured {
		score += w.FeaturedBonus
	}
	if p.Curated {
		score += ClampCurated(p.ManualScore, w) + w.CuratedBonus
	}

	return RoundScore(score)
}
