package nutrition

import (
	"errors"
	"fmt"
)

// ErrMissingServingUnit is reported when the selected unit of an amount is
// not among its serving units. The weight falls back to zero grams.
var ErrMissingServingUnit = errors.New("selected serving unit not found")

// ResolveServingWeight returns the weight of amount's selected serving times
// its selected quantity. When the selected unit is missing it returns zero
// grams together with ErrMissingServingUnit.
func ResolveServingWeight(amount FoodAmount) (UnitMass, error) {
	su, ok := amount.ServingUnit()
	if !ok {
		return Grams(0), fmt.Errorf("%w: %q", ErrMissingServingUnit, amount.SelectedUnit)
	}
	return UnitMass{Value: su.Value * amount.SelectedQuantity, Unit: su.Unit}, nil
}

// ServingWeight is the weight of ing at its selected serving.
func ServingWeight(ing Ingredient) UnitMass {
	w, _ := ResolveServingWeight(ing.Amount)
	return w
}

// FoodWeight is the weight of item at its own selected serving.
func FoodWeight(item FoodItem) UnitMass {
	w, _ := ResolveServingWeight(item.Amount)
	return w
}

// IngredientWeight sums the serving weights of ings.
func IngredientWeight(ings []Ingredient) (UnitMass, error) {
	total := Grams(0)
	for i, ing := range ings {
		w := ServingWeight(ing)
		if i == 0 {
			if _, err := GramsValue(w.Value, w.Unit); err != nil {
				return Grams(0), fmt.Errorf("ingredient %q weight: %w", ing.Name, err)
			}
			total = w
			continue
		}
		next, err := Sum(total, w)
		if err != nil {
			return Grams(0), fmt.Errorf("ingredient %q weight: %w", ing.Name, err)
		}
		total = next
	}
	return total, nil
}

// Sum adds two amounts of the same kind. Equal units add directly;
// otherwise both are taken to their gram-equivalent and the result is
// labelled with the canonical unit of the kind. Amounts of different kinds
// return an error wrapping ErrIncompatibleUnits.
func Sum(a, b UnitMass) (UnitMass, error) {
	da, ok := resolveUnit(a.Unit)
	if !ok {
		return UnitMass{}, &UnknownUnitError{Unit: a.Unit}
	}
	db, ok := resolveUnit(b.Unit)
	if !ok {
		return UnitMass{}, &UnknownUnitError{Unit: b.Unit}
	}
	if da.kind != db.kind {
		return UnitMass{}, incompatible(a.Unit, da, b.Unit, db)
	}
	if sameUnit(a.Unit, b.Unit) {
		return UnitMass{Value: a.Value + b.Value, Unit: a.Unit}, nil
	}
	return UnitMass{Value: a.Value*da.grams + b.Value*db.grams, Unit: canonicalUnits[db.kind]}, nil
}
