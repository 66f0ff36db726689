package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/backroom/internal/domain"
)

// mediumShown is how many medium-priority items the text summary lists.
const mediumShown = 3

// descriptionWidth truncates descriptions in the text summary.
const descriptionWidth = 50

// WriteSummary renders the human-readable reorder priority summary.
func WriteSummary(w io.Writer, r *domain.RankingReport) error {
	var b strings.Builder

	rule := strings.Repeat("=", 60)
	b.WriteString("REORDER PRIORITY ANALYSIS RESULTS\n")
	b.WriteString(rule + "\n")

	if len(r.Entries) == 0 {
		b.WriteString("No successful analyses completed\n")
	}

	high := r.ByPriority(domain.PriorityHigh)
	medium := r.ByPriority(domain.PriorityMedium)
	low := r.ByPriority(domain.PriorityLow)

	if len(high) > 0 {
		b.WriteString("HIGH PRIORITY - ORDER IMMEDIATELY:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, e := range high {
			fmt.Fprintf(&b, "%s: %s\n", e.ItemID, truncate(e.Description, descriptionWidth))
			fmt.Fprintf(&b, "   Stock: %s units\n", units(int64(e.OnHandUnits)))
			fmt.Fprintf(&b, "   Coverage: %s days (%s)\n", e.CoverageDays, strings.ToUpper(string(e.CoverageStatus)))
			fmt.Fprintf(&b, "   ROP: %s units (Below: %s)\n", units(e.ReorderPoint), yesNo(e.BelowReorderPoint))
			fmt.Fprintf(&b, "   Revenue Impact: $%s\n", MoneyGrouped(e.ExpectedRevenue))
			fmt.Fprintf(&b, "   Reasons: %s\n", strings.Join(e.UrgencyReasons, ", "))
			if len(e.Recommendations) > 0 {
				fmt.Fprintf(&b, "   Action: %s\n", e.Recommendations[0])
			}
			b.WriteString("\n")
		}
	}

	if len(medium) > 0 {
		b.WriteString("MEDIUM PRIORITY - ORDER SOON:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, e := range medium {
			if i == mediumShown {
				fmt.Fprintf(&b, "   ... and %d more medium priority items\n\n", len(medium)-mediumShown)
				break
			}
			reasons := "Moderate priority"
			if len(e.UrgencyReasons) > 0 {
				reasons = strings.Join(e.UrgencyReasons, ", ")
			}
			fmt.Fprintf(&b, "%s: %s\n", e.ItemID, truncate(e.Description, descriptionWidth))
			fmt.Fprintf(&b, "   Coverage: %s days, Stock: %s units\n", e.CoverageDays, units(int64(e.OnHandUnits)))
			fmt.Fprintf(&b, "   Reasons: %s\n\n", reasons)
		}
	}

	if len(low) > 0 {
		fmt.Fprintf(&b, "LOW PRIORITY: %d items have adequate inventory levels\n\n", len(low))
	}

	s := r.Summary()
	b.WriteString("SUMMARY STATISTICS:\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	fmt.Fprintf(&b, "High Priority (Order Now): %d items\n", s.High)
	fmt.Fprintf(&b, "Medium Priority (Order Soon): %d items\n", s.Medium)
	fmt.Fprintf(&b, "Low Priority (Adequate Stock): %d items\n", s.Low)
	fmt.Fprintf(&b, "Revenue at Risk (High Priority): $%s\n", MoneyGrouped(s.RevenueAtRisk))

	if s.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped: %d items\n", s.Skipped)
		for _, sk := range r.Skipped {
			fmt.Fprintf(&b, "   %s (%s): %s\n", sk.ItemID, sk.Kind, sk.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// MoneyGrouped renders an amount with two decimals and thousands separators.
func MoneyGrouped(v float64) string {
	return groupThousands(Money(v))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
