package pricing

import (
	"fmt"

	"github.com/opscart/server-rightsizer/pkg/recommender"
)

// HoursPerMonth is the standard billing convention for a month
const HoursPerMonth = 730

// MonthsPerYear converts monthly figures to yearly
const MonthsPerYear = 12

// Projection holds the cost delta implied by a recommendation.
// MonthlySavings may be negative (a cost increase, typical for Undersized);
// it is surfaced as-is, never clamped to zero.
type Projection struct {
	Server               string
	CurrentMonthlyCost   float64
	ProjectedMonthlyCost float64
	MonthlySavings       float64
	YearlySavings        float64
}

// Project computes the cost delta from hourly prices. Pure arithmetic:
// monthly_savings = current_monthly_cost - projected_monthly_cost.
func Project(server string, currentHourly, recommendedHourly float64) Projection {
	current := currentHourly * HoursPerMonth
	projected := recommendedHourly * HoursPerMonth
	savings := current - projected

	return Projection{
		Server:               server,
		CurrentMonthlyCost:   current,
		ProjectedMonthlyCost: projected,
		MonthlySavings:       savings,
		YearlySavings:        savings * MonthsPerYear,
	}
}

// ProjectRecommendation prices a recommendation through a provider.
// RightSized recommendations carry no target instance, so no projection is
// emitted (nil, nil).
func ProjectRecommendation(provider Provider, rec recommender.Recommendation) (*Projection, error) {
	if rec.RecommendedInstanceType == "" {
		return nil, nil
	}

	currentHourly, err := provider.HourlyPrice(rec.CurrentInstanceType)
	if err != nil {
		return nil, fmt.Errorf("current instance pricing: %w", err)
	}

	recommendedHourly, err := provider.HourlyPrice(rec.RecommendedInstanceType)
	if err != nil {
		return nil, fmt.Errorf("recommended instance pricing: %w", err)
	}

	projection := Project(rec.Server, currentHourly, recommendedHourly)
	return &projection, nil
}
