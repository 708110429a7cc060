// Package entity defines stakeholder profiles, their value components and the
// valuation rules that turn a component set into a risk- and time-adjusted
// total per entity.
package entity

import (
	"fmt"

	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Profile
// ─────────────────────────────────────────────────────────────────────────────

// Profile describes one stakeholder and its valuation preferences.  Profiles
// are immutable inputs: valuation never mutates them and derived results are
// recomputed per call.
type Profile struct {
	// EntityID is the caller-supplied stable identifier.
	EntityID common.ID `json:"entity_id"`

	// Name is a display label with no semantic weight.
	Name string `json:"name"`

	// Type classifies the stakeholder.  Member of the closed EntityType set.
	Type common.EntityType `json:"type"`

	// TimePreference is the per-period discount rate.  Zero disables
	// discounting; higher values shrink later-period value faster.
	TimePreference float64 `json:"time_preference"`

	// RiskPreference in [0,1] expresses aversion to uncertain components.
	// Zero ignores risk beyond the probability weighting itself; one applies
	// the full probability-power penalty.
	RiskPreference float64 `json:"risk_preference"`
}

// Validate reports the first structural defect in p, or nil.
func (p Profile) Validate() error {
	if p.EntityID.IsEmpty() {
		return errors.New(errors.CodeInvalidProfile, "profile requires an entity ID")
	}
	if !p.Type.Valid() {
		return errors.Newf(errors.CodeInvalidProfile, "profile %s: unknown entity type %q", p.EntityID, p.Type)
	}
	if p.TimePreference < 0 {
		return errors.Newf(errors.CodeInvalidProfile, "profile %s: time preference %v must be >= 0", p.EntityID, p.TimePreference)
	}
	if p.RiskPreference < 0 || p.RiskPreference > 1 {
		return errors.Newf(errors.CodeInvalidProfile, "profile %s: risk preference %v outside [0,1]", p.EntityID, p.RiskPreference)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ValueComponent
// ─────────────────────────────────────────────────────────────────────────────

// TimelineEntry is one scheduled partial amount of a component.
type TimelineEntry struct {
	// Period is the discounting period the partial lands in; 0 is immediate.
	Period uint `json:"period"`

	// Amount is the partial value realized in that period.  Negative
	// amounts model costs and pass through valuation un-floored.
	Amount float64 `json:"amount"`
}

// ValueComponent is one source of value (or cost) accruing to an entity.
type ValueComponent struct {
	// ComponentID identifies the component within its entity.
	ComponentID common.ID `json:"component_id"`

	// Dimension tags the kind of value carried.  Member of the closed
	// Dimension set.
	Dimension common.Dimension `json:"dimension"`

	// Amount is the nominal undiscounted total, kept for reporting; the
	// timeline partials are authoritative for valuation.
	Amount float64 `json:"amount"`

	// Timeline schedules the partial amounts.  An empty timeline values
	// to zero.
	Timeline []TimelineEntry `json:"timeline"`

	// Probability in [0,1] that the component materializes at all.
	Probability float64 `json:"probability"`
}

// NewImmediateComponent builds a single-shot component realized in period 0.
func NewImmediateComponent(dim common.Dimension, amount, probability float64) ValueComponent {
	return ValueComponent{
		ComponentID: common.NewID(),
		Dimension:   dim,
		Amount:      amount,
		Timeline:    []TimelineEntry{{Period: 0, Amount: amount}},
		Probability: probability,
	}
}

// Validate reports the first structural defect in c, or nil.
func (c ValueComponent) Validate() error {
	if !c.Dimension.Valid() {
		return errors.Newf(errors.CodeInvalidParam, "component %s: unknown dimension %q", c.ComponentID, c.Dimension)
	}
	if c.Probability < 0 || c.Probability > 1 {
		return errors.ProbabilityOutOfRange(
			fmt.Sprintf("component %s: probability %v outside [0,1]", c.ComponentID, c.Probability))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ValueResult
// ─────────────────────────────────────────────────────────────────────────────

// ComponentValue is the per-component valuation breakdown.
type ComponentValue struct {
	ComponentID  common.ID        `json:"component_id"`
	Dimension    common.Dimension `json:"dimension"`
	PresentValue float64          `json:"present_value"`
	RiskAdjusted float64          `json:"risk_adjusted"`
}

// ValueResult is the derived valuation of one entity over a component set.
// Results are plain values; callers may retain and compare them freely.
type ValueResult struct {
	EntityID common.ID `json:"entity_id"`

	// TotalValue is the sum of risk-adjusted component values.
	TotalValue float64 `json:"total_value"`

	// IsWin is TotalValue > 0.  Exactly zero loses.
	IsWin bool `json:"is_win"`

	// ByDimension aggregates risk-adjusted values per dimension.  Only
	// dimensions with at least one component appear.
	ByDimension map[common.Dimension]float64 `json:"by_dimension"`

	// Components carries the per-component breakdown in input order.
	Components []ComponentValue `json:"components"`
}
