package points

import (
	"github.com/vietddude/pointboard/internal/core/apperr"
)

// Config holds point award settings.
type Config struct {
	PerStoryPoint int64 `yaml:"per_story_point" toml:"per_story_point"`
}

// DefaultConfig awards 10 points per story point.
func DefaultConfig() Config {
	return Config{PerStoryPoint: 10}
}

// Calculator maps a task's story-point estimate to a point award. The mapping
// is linear, so a larger estimate always earns more.
type Calculator struct {
	perStoryPoint int64
}

// NewCalculator creates a calculator. Non-positive rates fall back to the default.
func NewCalculator(cfg Config) Calculator {
	if cfg.PerStoryPoint <= 0 {
		cfg = DefaultConfig()
	}
	return Calculator{perStoryPoint: cfg.PerStoryPoint}
}

// ForStoryPoints returns the award for an estimate.
func (c Calculator) ForStoryPoints(storyPoints int) (int64, error) {
	if storyPoints <= 0 {
		return 0, apperr.Validation("points.calculate", "invalid story points %d: must be positive", storyPoints)
	}
	return int64(storyPoints) * c.perStoryPoint, nil
}
