package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/backroom/internal/domain"
)

// WriteInsight renders the human-readable analysis of one item.
func WriteInsight(w io.Writer, in *domain.InventoryInsight) error {
	var b strings.Builder

	name := in.Profile.Description
	if name == "" {
		name = in.Profile.ItemID
	}
	fmt.Fprintf(&b, "INVENTORY ANALYSIS FOR %s (%s)\n", strings.ToUpper(name), in.Profile.ItemID)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString("CURRENT STATUS:\n")
	fmt.Fprintf(&b, "   Stock Level: %s units\n", units(int64(in.Snapshot.OnHandUnits)))
	fmt.Fprintf(&b, "   Status: %s\n", strings.ToUpper(string(in.Coverage.Status)))
	fmt.Fprintf(&b, "   %s\n\n", coverageMessage(in.Coverage, in.ForecastHorizonDays))

	b.WriteString("REORDER ANALYSIS:\n")
	fmt.Fprintf(&b, "   Reorder Point: %s units (Below: %s)\n", units(in.Reorder.RoundedReorderPoint()), yesNo(in.BelowReorderPoint()))
	fmt.Fprintf(&b, "   Lead Time Demand: %s units over %d days\n", units(in.Reorder.RoundedLeadTimeDemand()), in.Reorder.LeadTimeDays)
	fmt.Fprintf(&b, "   Safety Stock: %s units\n\n", units(in.Reorder.RoundedSafetyStock()))

	b.WriteString("FINANCIAL METRICS:\n")
	fmt.Fprintf(&b, "   Expected Revenue: $%s\n", MoneyGrouped(in.Financial.ExpectedRevenue))
	fmt.Fprintf(&b, "   Holding Costs: $%s\n", MoneyGrouped(in.Financial.HoldingCost))
	fmt.Fprintf(&b, "   Gross Profit: $%s\n", MoneyGrouped(in.Financial.GrossProfit))
	fmt.Fprintf(&b, "   Profit Margin: %s%%\n", Percent(in.Financial.ProfitMarginPct))

	if len(in.Recommendations) > 0 {
		b.WriteString("\nRECOMMENDATIONS:\n")
		for _, rec := range in.Recommendations {
			fmt.Fprintf(&b, "   - %s\n", rec)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func coverageMessage(c domain.CoverageResult, horizon int) string {
	days, ok := c.CoverageDays.Days()
	if !ok {
		return fmt.Sprintf("Inventory will last beyond the %d day forecast period", horizon)
	}
	if c.ExhaustionDate == nil {
		return fmt.Sprintf("Inventory will be exhausted in %d days", days)
	}
	return fmt.Sprintf("Inventory will be exhausted in %d days (%s)", days, c.ExhaustionDate)
}

func units(n int64) string {
	return groupThousands(decimal.NewFromInt(n).String())
}
