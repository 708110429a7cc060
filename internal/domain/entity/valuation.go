package entity

import (
	"context"
	"math"

	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// Valuator computes risk- and time-adjusted entity values.
type Valuator interface {
	// CalculateEntityValue values profile over components.  Structural
	// defects in the inputs fail fast with a STRUCT_* error; an empty
	// component set is a degenerate input that values to zero with a
	// warning log.
	CalculateEntityValue(ctx context.Context, profile Profile, components []ValueComponent) (*ValueResult, error)
}

// DiscountedValuator is the standard Valuator:
//
//	pv       = Σ_timeline partial / (1 + TimePreference)^period × Probability
//	adjusted = pv × Probability^RiskPreference   (risky multi-period only)
//
// The risk penalty applies only when Probability < 1 AND the timeline has
// more than one entry: a certain component carries no risk, and a single-shot
// component's uncertainty is already fully expressed by the probability
// weighting inside pv.  Raising RiskPreference never raises the adjusted
// value of a risky component.
type DiscountedValuator struct {
	logger logging.Logger
}

// ValuatorConfig carries DiscountedValuator dependencies.
type ValuatorConfig struct {
	// Logger receives degenerate-input warnings.  Defaults to the nop
	// logger when nil.
	Logger logging.Logger
}

// NewValuator constructs a DiscountedValuator.
func NewValuator(cfg ValuatorConfig) *DiscountedValuator {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &DiscountedValuator{logger: cfg.Logger}
}

// CalculateEntityValue implements Valuator.
func (v *DiscountedValuator) CalculateEntityValue(ctx context.Context, profile Profile, components []ValueComponent) (*ValueResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "valuation cancelled")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	for _, c := range components {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	if len(components) == 0 {
		v.logger.Warn("valuing entity with no components",
			logging.String("entity_id", profile.EntityID.String()))
	}

	result := &ValueResult{
		EntityID:    profile.EntityID,
		ByDimension: make(map[common.Dimension]float64, len(components)),
		Components:  make([]ComponentValue, 0, len(components)),
	}

	for _, c := range components {
		pv := presentValue(c, profile.TimePreference)
		adjusted := riskAdjust(pv, c, profile.RiskPreference)

		result.TotalValue += adjusted
		result.ByDimension[c.Dimension] += adjusted
		result.Components = append(result.Components, ComponentValue{
			ComponentID:  c.ComponentID,
			Dimension:    c.Dimension,
			PresentValue: pv,
			RiskAdjusted: adjusted,
		})
	}
	result.IsWin = result.TotalValue > 0

	return result, nil
}

// presentValue discounts the timeline partials and weights by probability.
// TimePreference 0 leaves amounts undiscounted; an empty timeline yields 0.
func presentValue(c ValueComponent, timePreference float64) float64 {
	var pv float64
	for _, entry := range c.Timeline {
		pv += entry.Amount / math.Pow(1+timePreference, float64(entry.Period))
	}
	return pv * c.Probability
}

// riskAdjust applies the probability-power penalty to risky multi-period
// components.  Certain (Probability == 1) and single-shot components pass
// through unchanged.
func riskAdjust(pv float64, c ValueComponent, riskPreference float64) float64 {
	if c.Probability >= 1 || len(c.Timeline) <= 1 {
		return pv
	}
	if c.Probability == 0 {
		return 0
	}
	return pv * math.Pow(c.Probability, riskPreference)
}
