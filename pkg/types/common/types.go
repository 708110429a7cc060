// Package common defines the shared identifier types and closed vocabularies
// used across the WinWin-Intelligence engine.  Entity types and value
// dimensions are deliberately closed sets validated at construction time so
// that cross-entity aggregation by dimension is always meaningful.
package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies an entity, value component, deal, or roadmap.  Callers may
// supply their own stable identifiers; NewID generates a UUID v4 when they
// do not.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// IsEmpty reports whether the ID carries no value.
func (id ID) IsEmpty() bool { return id == "" }

// ─────────────────────────────────────────────────────────────────────────────
// EntityType — closed enumeration of stakeholder categories
// ─────────────────────────────────────────────────────────────────────────────

// EntityType classifies a stakeholder participating in deals.
type EntityType string

const (
	EntityGovernment EntityType = "government"
	EntityCorporate  EntityType = "corporate"
	EntityNGO        EntityType = "ngo"
	EntityCivilian   EntityType = "civilian"
)

// AllEntityTypes lists every valid EntityType in a stable order.
var AllEntityTypes = []EntityType{
	EntityGovernment,
	EntityCorporate,
	EntityNGO,
	EntityCivilian,
}

// Valid reports whether t is a member of the closed entity-type set.
func (t EntityType) Valid() bool {
	switch t {
	case EntityGovernment, EntityCorporate, EntityNGO, EntityCivilian:
		return true
	}
	return false
}

// String returns the lowercase wire form.
func (t EntityType) String() string { return string(t) }

// ParseEntityType converts a case-insensitive string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q (want one of %v)", s, AllEntityTypes)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Dimension — closed enumeration of value dimensions
// ─────────────────────────────────────────────────────────────────────────────

// Dimension tags a value component with the kind of value it carries.  The
// vocabulary is shared system-wide so per-dimension aggregates compare across
// entities.
type Dimension string

const (
	DimensionEconomic      Dimension = "economic"
	DimensionSocial        Dimension = "social"
	DimensionEnvironmental Dimension = "environmental"
	DimensionSecurity      Dimension = "security"
)

// AllDimensions lists every valid Dimension in a stable order.
var AllDimensions = []Dimension{
	DimensionEconomic,
	DimensionSocial,
	DimensionEnvironmental,
	DimensionSecurity,
}

// Valid reports whether d is a member of the closed dimension set.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionEconomic, DimensionSocial, DimensionEnvironmental, DimensionSecurity:
		return true
	}
	return false
}

// String returns the lowercase wire form.
func (d Dimension) String() string { return string(d) }

// ParseDimension converts a case-insensitive string into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown value dimension %q (want one of %v)", s, AllDimensions)
	}
	return d, nil
}
