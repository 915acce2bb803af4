package generation

import (
	"github.com/tunewave/tunewave/internal/apperrors"
)

// Quality tiers and their price in credits
const (
	QualityStandard = "standard"
	QualityHD       = "hd"
	QualityUltra    = "ultra"
)

var costPerQuality = map[string]int64{
	QualityStandard: 20,
	QualityHD:       30,
	QualityUltra:    50,
}

// Cost resolves a quality tier to its price in credits.
// Empty quality means standard; unknown tiers are rejected before any money moves.
func Cost(quality string) (int64, error) {
	if quality == "" {
		quality = QualityStandard
	}

	cost, ok := costPerQuality[quality]
	if !ok {
		return 0, apperrors.ErrQualityInvalid
	}

	return cost, nil
}
