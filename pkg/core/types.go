// Package core provides the domain models, tolerance policy, and matching
// logic for LC-MS target compound identification.
package core

import (
	"fmt"
	"math"
)

// Peak represents a single experimentally observed LC-MS signal.
type Peak struct {
	MZ        float64 // Mass-to-charge ratio
	RT        float64 // Retention time
	Intensity float64

	// Row is the 1-based data row in the source peak list. Peaks have no
	// natural key; row position identifies them.
	Row int
}

// Attribute is one source column value carried through unchanged.
type Attribute struct {
	Name  string
	Value any
}

// Attributes preserves the source table's columns in their original order.
type Attributes []Attribute

// Get returns the value for a column name, or nil if absent.
func (a Attributes) Get(name string) any {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value
		}
	}
	return nil
}

// Names returns the column names in source order.
func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for i, attr := range a {
		names[i] = attr.Name
	}
	return names
}

// CompoundTarget represents one reference compound definition.
type CompoundTarget struct {
	MZ float64 // Expected mass-to-charge ratio

	// RT is the expected retention time. A nil RT means the retention time
	// is unknown and the compound matches on mass alone.
	RT *float64

	// RTTolerance is the symmetric half-width around RT. A nil tolerance
	// falls back to the run-level default.
	RTTolerance *float64

	// Attrs carries every column of the source compoundlist row verbatim.
	Attrs Attributes

	// Row is the 1-based data row in the source compound table.
	Row int
}

// ToleranceUnit selects how the mass window is computed.
type ToleranceUnit int

const (
	// ToleranceDa interprets the mass tolerance as an absolute window in
	// daltons: [mz-t, mz+t].
	ToleranceDa ToleranceUnit = iota
	// TolerancePPM interprets the mass tolerance as parts-per-million of
	// the expected m/z: [mz*(1-t*1e-6), mz*(1+t*1e-6)].
	TolerancePPM
)

func (u ToleranceUnit) String() string {
	switch u {
	case ToleranceDa:
		return "da"
	case TolerancePPM:
		return "ppm"
	default:
		return fmt.Sprintf("ToleranceUnit(%d)", int(u))
	}
}

// ParseToleranceUnit parses "da" or "ppm".
func ParseToleranceUnit(s string) (ToleranceUnit, error) {
	switch s {
	case "da", "Da", "DA":
		return ToleranceDa, nil
	case "ppm", "PPM":
		return TolerancePPM, nil
	default:
		return ToleranceDa, fmt.Errorf("invalid tolerance unit %q, must be da or ppm", s)
	}
}

// Tolerance is the run-level tolerance policy applied to every compound.
type Tolerance struct {
	Mass     float64       // Mass window half-width, in Unit
	Unit     ToleranceUnit // da or ppm
	RTWindow float64       // Default retention-time half-width for compounds without one
}

// MassWindow returns the inclusive [lo, hi] mass window around an expected m/z.
func (t Tolerance) MassWindow(mz float64) (lo, hi float64) {
	switch t.Unit {
	case TolerancePPM:
		delta := mz * t.Mass * 1e-6
		return mz - delta, mz + delta
	default:
		return mz - t.Mass, mz + t.Mass
	}
}

// RTToleranceFor returns the retention-time half-width for a compound,
// substituting the run default when the compound carries none.
func (t Tolerance) RTToleranceFor(c *CompoundTarget) float64 {
	if c.RTTolerance != nil && !math.IsNaN(*c.RTTolerance) {
		return *c.RTTolerance
	}
	return t.RTWindow
}

// MatchResult is one output row: a compound paired with one matching peak,
// or a compound alone when nothing matched.
type MatchResult struct {
	Compound *CompoundTarget
	Peak     *Peak // nil when Matched is false
	Matched  bool
}
