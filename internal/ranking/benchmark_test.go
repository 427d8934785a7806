package ranking

import (
	"testing"
)

// BenchmarkJaccard benchmarks set similarity over typical attribute sizes.
func BenchmarkJaccard(b *testing.B) {
	a := []string{"startups", "agencies", "sales teams", "freelancers", "enterprise"}
	c := []string{"Startups", "SMBs", "sales teams", "nonprofits"}

	for i := 0; i < b.N; i++ {
		Jaccard(a, c)
	}
}

// BenchmarkScoreAlternative benchmarks the composite score calculation.
func BenchmarkScoreAlternative(b *testing.B) {
	weights := DefaultWeights()
	params := AlternativeParams{
		UseCaseOverlap:     0.5,
		AudienceOverlap:    0.25,
		FeatureOverlap:     0.4,
		SharedIntegrations: 7,
		Featured:           true,
		Curated:            true,
		ManualScore:        12,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ScoreAlternative(params, weights)
	}
}
