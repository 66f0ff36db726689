package ranker

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Weights are the additive urgency points and the bucket thresholds of a ranking.
type Weights struct {
	Critical          int `json:"critical" mapstructure:"critical" default:"100"`
	Low               int `json:"low" mapstructure:"low" default:"50"`
	BelowReorderPoint int `json:"below_reorder_point" mapstructure:"below_reorder_point" default:"75"`
	// LowMarginPenalty is subtracted from the score.
	LowMarginPenalty int `json:"low_margin_penalty" mapstructure:"low_margin_penalty" default:"20"`

	HighThreshold int `json:"high_threshold" mapstructure:"high_threshold" default:"75"`
	// MediumThreshold is a pointer so that 0 (every non-negative score is at least medium) can be set.
	MediumThreshold *int `json:"medium_threshold" mapstructure:"medium_threshold" default:"25"`
}

// MediumCutoff is the lowest score of the medium bucket.
func (w Weights) MediumCutoff() int {
	if w.MediumThreshold == nil {
		return *DefaultWeights().MediumThreshold
	}
	return *w.MediumThreshold
}

// DefaultWeights returns 100/50/75/-20 with buckets at 75 and 25.
func DefaultWeights() Weights {
	var w Weights
	defaults.MustSet(&w)
	return w
}

// Config controls the fan-out of a ranking run.
type Config struct {
	Weights Weights `mapstructure:"weights"`
	// Workers caps how many items are analyzed at once.
	Workers int `mapstructure:"workers" default:"4" validate:"gte=1"`
	// ItemTimeout bounds load plus analysis of a single item.
	ItemTimeout time.Duration `mapstructure:"item_timeout" default:"30s" validate:"gt=0"`
}

// NewConfig fills unset fields of c and validates it.
func NewConfig(c Config) (Config, error) {
	if err := defaults.Set(&c); err != nil {
		return Config{}, fmt.Errorf("apply ranker defaults: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("validate ranker config: %w", err)
	}
	if c.Weights.HighThreshold < c.Weights.MediumCutoff() {
		return Config{}, fmt.Errorf("validate ranker config: high threshold %d is below medium threshold %d",
			c.Weights.HighThreshold, c.Weights.MediumCutoff())
	}
	return c, nil
}
