// Package ranking provides the similarity metrics and calibrated weights used
// to score catalog alternatives.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	score := ranking.ScoreAlternative(ranking.AlternativeParams{
//		UseCaseOverlap:     ranking.Jaccard(source.UseCaseSlugs(), candidate.UseCaseSlugs()),
//		AudienceOverlap:    ranking.Jaccard(source.TargetAudience, candidate.TargetAudience),
//		FeatureOverlap:     ranking.Jaccard(source.KeyFeatures, candidate.KeyFeatures),
//		SharedIntegrations: ranking.IntersectionCount(source.Integrations, candidate.Integrations),
//		Featured:           candidate.Featured,
//	}, weights)
//
// Set Metrics:
//
// Jaccard and IntersectionCount compare free-text attribute sets
// case-insensitively, ignoring blank values and duplicates. The Jaccard
// similarity of two empty sets is 0.
//
// Calibration:
//
// Weights can be tuned at deploy time via a JSON calibration file loaded at
// startup. Partial files are merged over DefaultWeights. See
// configs/ranking.calibration.json for the default configuration.
package ranking
