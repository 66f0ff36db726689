package engine

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
)

// Recommendation texts, listed in the order they appear on an insight.
const (
	RecommendReorderNow     = "reorder immediately — low inventory coverage"
	RecommendReorderSoon    = "consider reordering soon — inventory running low"
	RecommendAtReorderPoint = "current inventory is at or below reorder point"
	RecommendImproveMargins = "consider optimizing inventory levels to improve margins"
)

// Composer runs the coverage, reorder and financial analyses over one forecast.
type Composer struct {
	policy    Policy
	coverage  CoverageAnalyzer
	reorder   ReorderCalculator
	financial FinancialProjector
}

// NewComposer creates a composer for the given policy.
func NewComposer(p Policy) *Composer {
	return &Composer{
		policy:   p,
		coverage: NewCoverageAnalyzer(p),
		reorder:  NewReorderCalculator(p),
	}
}

// Policy returns the thresholds the composer was built with.
func (c *Composer) Policy() Policy { return c.policy }

// Compose builds the full insight for one item. Analyzer errors propagate unchanged.
func (c *Composer) Compose(profile domain.ItemProfile, snapshot domain.InventorySnapshot, f domain.Forecast) (*domain.InventoryInsight, error) {
	if err := validateInputs(profile, snapshot); err != nil {
		return nil, err
	}

	coverage, err := c.coverage.Analyze(f, snapshot.OnHandUnits)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", profile.ItemID, err)
	}

	reorder, err := c.reorder.Compute(f, profile.LeadTimeDays)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", profile.ItemID, err)
	}
	for _, w := range reorder.Warnings {
		log.Warn().Str("item_id", profile.ItemID).Msg(w)
	}

	financial, err := c.financial.Compute(f, snapshot.OnHandUnits, profile.UnitPrice, profile.HoldingCostRate)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", profile.ItemID, err)
	}

	insight := &domain.InventoryInsight{
		Profile:             profile,
		Snapshot:            snapshot,
		Coverage:            coverage,
		Reorder:             reorder,
		Financial:           financial,
		ForecastHorizonDays: f.Len(),
	}
	insight.Recommendations = c.recommend(insight)

	return insight, nil
}

func (c *Composer) recommend(in *domain.InventoryInsight) []string {
	recs := make([]string, 0, 4)

	switch in.Coverage.Status {
	case domain.CoverageCritical:
		recs = append(recs, RecommendReorderNow)
	case domain.CoverageLow:
		recs = append(recs, RecommendReorderSoon)
	}
	if in.BelowReorderPoint() {
		recs = append(recs, RecommendAtReorderPoint)
	}
	if in.Financial.ProfitMarginPct < c.policy.MarginFloor() {
		recs = append(recs, RecommendImproveMargins)
	}
	return recs
}

func validateInputs(profile domain.ItemProfile, snapshot domain.InventorySnapshot) error {
	if err := validate.Struct(profile); err != nil {
		return domain.InvalidInputf("item profile: %s", describeValidation(err))
	}
	if err := validate.Struct(snapshot); err != nil {
		return domain.InvalidInputf("inventory snapshot: %s", describeValidation(err))
	}
	if profile.ItemID != snapshot.ItemID {
		return domain.InvalidInputf("item_id mismatch: profile %q, snapshot %q", profile.ItemID, snapshot.ItemID)
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed %s", fe.Field(), fe.Tag())
}
