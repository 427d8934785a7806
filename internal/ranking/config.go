package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// AlternativeWeights defines the weights used to score an alternative against a source item.
type AlternativeWeights struct {
	UseCase          float64 `json:"use_case"`          // Weight for use-case Jaccard (default: 50)
	Audience         float64 `json:"audience"`          // Weight for target audience Jaccard (default: 20)
	Features         float64 `json:"features"`          // Weight for key feature Jaccard (default: 25)
	IntegrationMatch float64 `json:"integration_match"` // Points per shared integration (default: 1)
	IntegrationCap   int     `json:"integration_cap"`   // Max shared integrations counted (default: 5)
	FeaturedBonus    float64 `json:"featured_bonus"`    // Flat bonus for featured candidates (default: 2)
	CuratedBonus     float64 `json:"curated_bonus"`     // Flat bonus for curated candidates (default: 8)
	CuratedMin       float64 `json:"curated_min"`       // Lower clamp for manual scores (default: -10)
	CuratedMax       float64 `json:"curated_max"`       // Upper clamp for manual scores (default: 30)
}

// Weights holds all ranking weight configurations.
type Weights struct {
	Alternatives AlternativeWeights `json:"alternatives"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configurations
}

// DefaultWeights returns the default ranking weight configuration.
//
// Formula:
//
//	score = usecase_jaccard*50 + audience_jaccard*20 + feature_jaccard*25
//	      + min(shared_integrations, 5)*1
//	      + 2 if featured
//	      + clamp(manual_score, -10, 30) + 8 if curated
//
// Max algorithmic score is 102; curated edges can add up to 38 more.
func DefaultWeights() *Weights {
	return &Weights{
		Alternatives: AlternativeWeights{
			UseCase:          50,
			Audience:         20,
			Features:         25,
			IntegrationMatch: 1,
			IntegrationCap:   5,
			FeaturedBonus:    2,
			CuratedBonus:     8,
			CuratedMin:       -10,
			CuratedMax:       30,
		},
	}
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns default weights with an error.
// Partial configurations are merged with defaults for graceful degradation.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("invalid calibration file, using defaults",
			"path", filePath,
			"error", err)
		return defaults, err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights.
// Only non-zero values from the override are applied, so a calibration file
// cannot set a weight to exactly zero.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	o := override.Alternatives
	if o.UseCase != 0 {
		result.Alternatives.UseCase = o.UseCase
	}
	if o.Audience != 0 {
		result.Alternatives.Audience = o.Audience
	}
	if o.Features != 0 {
		result.Alternatives.Features = o.Features
	}
	if o.IntegrationMatch != 0 {
		result.Alternatives.IntegrationMatch = o.IntegrationMatch
	}
	if o.IntegrationCap != 0 {
		result.Alternatives.IntegrationCap = o.IntegrationCap
	}
	if o.FeaturedBonus != 0 {
		result.Alternatives.FeaturedBonus = o.FeaturedBonus
	}
	if o.CuratedBonus != 0 {
		result.Alternatives.CuratedBonus = o.CuratedBonus
	}
	if o.CuratedMin != 0 {
		result.Alternatives.CuratedMin = o.CuratedMin
	}
	if o.CuratedMax != 0 {
		result.Alternatives.CuratedMax = o.CuratedMax
	}

	return &result
}

// Validate checks that the weights describe a usable scoring formula.
func (w *Weights) Validate() error {
	a := w.Alternatives
	if a.UseCase < 0 || a.Audience < 0 || a.Features < 0 || a.IntegrationMatch < 0 {
		return fmt.Errorf("similarity weights must be non-negative")
	}
	if a.IntegrationCap < 0 {
		return fmt.Errorf("integration_cap must be non-negative (got %d)", a.IntegrationCap)
	}
	if a.CuratedMin > a.CuratedMax {
		return fmt.Errorf("curated_min (%.1f) must not exceed curated_max (%.1f)", a.CuratedMin, a.CuratedMax)
	}
	return nil
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	d, l := defaults.Alternatives, loaded.Alternatives
	check := func(name string, from, to float64) {
		if from != to {
			overrides = append(overrides, fmt.Sprintf("alternatives.%s: %.2f -> %.2f", name, from, to))
		}
	}
	check("use_case", d.UseCase, l.UseCase)
	check("audience", d.Audience, l.Audience)
	check("features", d.Features, l.Features)
	check("integration_match", d.IntegrationMatch, l.IntegrationMatch)
	check("integration_cap", float64(d.IntegrationCap), float64(l.IntegrationCap))
	check("featured_bonus", d.FeaturedBonus, l.FeaturedBonus)
	check("curated_bonus", d.CuratedBonus, l.CuratedBonus)
	check("curated_min", d.CuratedMin, l.CuratedMin)
	check("curated_max", d.CuratedMax, l.CuratedMax)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
