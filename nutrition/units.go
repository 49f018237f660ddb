package nutrition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a unit is outside the conversion vocabulary.
var ErrUnknownUnit = errors.New("unknown unit")

// ErrIncompatibleUnits is returned when two units measure different kinds
// (mass, energy, activity) and cannot be combined.
var ErrIncompatibleUnits = errors.New("incompatible units")

type unitKind string

const (
	unitKindMass     unitKind = "mass"
	unitKindEnergy   unitKind = "energy"
	unitKindActivity unitKind = "activity"
)

type unitDef struct {
	kind  unitKind
	grams float64
}

// unitTable maps a lower-cased unit to its gram-equivalent multiplier.
// The canonical unit of each kind (g, kcal, iu) has multiplier 1.
var unitTable = map[string]unitDef{
	// mass (base = g)
	"kg":  {kind: unitKindMass, grams: 1000},
	"dag": {kind: unitKindMass, grams: 10},
	"g":   {kind: unitKindMass, grams: 1},
	"dg":  {kind: unitKindMass, grams: 0.1},
	"cg":  {kind: unitKindMass, grams: 0.01},
	"mg":  {kind: unitKindMass, grams: 0.001},
	"µg":  {kind: unitKindMass, grams: 0.000001},
	"μg":  {kind: unitKindMass, grams: 0.000001},
	"ug":  {kind: unitKindMass, grams: 0.000001},
	"mcg": {kind: unitKindMass, grams: 0.000001},
	"oz":  {kind: unitKindMass, grams: 28.349523125},
	// volume, treated as the mass of water
	"ml": {kind: unitKindMass, grams: 1},

	// energy (base = kcal)
	"kcal": {kind: unitKindEnergy, grams: 1},
	"kj":   {kind: unitKindEnergy, grams: 1 / 4.184},

	"iu": {kind: unitKindActivity, grams: 1},
}

var canonicalUnits = map[unitKind]string{
	unitKindMass:     UnitGram,
	unitKindEnergy:   UnitKcal,
	unitKindActivity: UnitIU,
}

const (
	UnitGram      = "g"
	UnitMilligram = "mg"
	UnitMicrogram = "µg"
	UnitKcal      = "kcal"
	UnitIU        = "IU"
)

// UnknownUnitError carries the offending unit string.
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownUnit, e.Unit)
}

func (e *UnknownUnitError) Unwrap() error { return ErrUnknownUnit }

// GramsValue expresses value in the gram-equivalent scale of unit.
func GramsValue(value float64, unit string) (float64, error) {
	def, ok := resolveUnit(unit)
	if !ok {
		return 0, &UnknownUnitError{Unit: unit}
	}
	return value * def.grams, nil
}

// MustGramsValue is GramsValue for trusted input; it panics on unknown units.
func MustGramsValue(value float64, unit string) float64 {
	v, err := GramsValue(value, unit)
	if err != nil {
		panic(err)
	}
	return v
}

func ConvertToGrams(m UnitMass) (float64, error) {
	return GramsValue(m.Value, m.Unit)
}

// Convert changes the unit of value within a single kind.
func Convert(value float64, fromUnit, toUnit string) (float64, error) {
	from, ok := resolveUnit(fromUnit)
	if !ok {
		return 0, &UnknownUnitError{Unit: fromUnit}
	}
	to, ok := resolveUnit(toUnit)
	if !ok {
		return 0, &UnknownUnitError{Unit: toUnit}
	}
	if from.kind != to.kind {
		return 0, incompatible(fromUnit, from, toUnit, to)
	}
	return value * from.grams / to.grams, nil
}

// SameKind reports whether a and b are known units of the same kind.
func SameKind(a, b string) bool {
	da, ok := resolveUnit(a)
	if !ok {
		return false
	}
	db, ok := resolveUnit(b)
	return ok && da.kind == db.kind
}

func incompatible(a string, da unitDef, b string, db unitDef) error {
	return fmt.Errorf("%w: cannot convert %s (%s) to %s (%s)", ErrIncompatibleUnits, a, da.kind, b, db.kind)
}

// CanonicalUnit returns the unit that the gram-equivalent scale of unit is expressed in.
func CanonicalUnit(unit string) (string, error) {
	def, ok := resolveUnit(unit)
	if !ok {
		return "", &UnknownUnitError{Unit: unit}
	}
	return canonicalUnits[def.kind], nil
}

func ValidUnit(unit string) bool {
	_, ok := resolveUnit(unit)
	return ok
}

// MassUnit reports whether unit measures mass (or volume treated as mass).
func MassUnit(unit string) bool {
	def, ok := resolveUnit(unit)
	return ok && def.kind == unitKindMass
}

func resolveUnit(unit string) (unitDef, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	def, ok := unitTable[u]
	return def, ok
}

// sameUnit reports whether a and b name the same table entry.
func sameUnit(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
