package nutrition

import (
	"errors"
	"fmt"
	"log/slog"
)

// ReferenceWeight is the basis used to compare foods with each other.
var ReferenceWeight = Grams(100)

// Aggregator combines ingredient nutrients into a single profile. The zero
// value is ready to use and logs to slog.Default.
type Aggregator struct {
	Logger *slog.Logger
}

var defaultAggregator = &Aggregator{}

func (a *Aggregator) logger() *slog.Logger {
	if a == nil || a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// Aggregate sums the nutrients of ings at their selected servings and
// rescales the result to target. A nil target keeps the combined weight of
// the ingredients.
func (a *Aggregator) Aggregate(ings []Ingredient, target *UnitMass) (NutrientProfile, error) {
	a.reportMissingServings(ings)

	current, err := IngredientWeight(ings)
	if err != nil {
		return NutrientProfile{}, err
	}
	effective := current
	if target != nil {
		effective = *target
	}
	currentG, err := massGrams(current)
	if err != nil {
		return NutrientProfile{}, fmt.Errorf("current weight: %w", err)
	}
	targetG, err := massGrams(effective)
	if err != nil {
		return NutrientProfile{}, fmt.Errorf("target weight: %w", err)
	}
	if currentG == 0 {
		a.logger().Debug("ingredients weigh nothing, returning zero profile", "ingredients", len(ings))
		return zeroProfile(effective), nil
	}
	ratio := targetG / currentG

	fractions := make([]float64, len(ings))
	for i, ing := range ings {
		f, err := a.fraction(ing)
		if err != nil {
			return NutrientProfile{}, err
		}
		fractions[i] = f
	}

	values := make(map[NutrientKey]UnitMass, len(fields))
	for _, field := range fields {
		sum, err := foldField(field, ings, fractions)
		if err != nil {
			return NutrientProfile{}, err
		}
		values[field.Key] = UnitMass{Value: sum.Value * ratio, Unit: sum.Unit}
	}
	return NutrientProfile{weight: effective, values: values}, nil
}

// SelectedSize aggregates item at the weight of its selected serving.
func (a *Aggregator) SelectedSize(item FoodItem) (NutrientProfile, error) {
	w, err := ResolveServingWeight(item.Amount)
	if err != nil {
		a.logger().Warn("food selected unit missing, using zero weight",
			"food_id", item.ID, "food", item.Name, "selected_unit", item.Amount.SelectedUnit)
	}
	return a.Aggregate(item.Ingredients, &w)
}

// ForWeight aggregates item at an explicit weight.
func (a *Aggregator) ForWeight(item FoodItem, weight UnitMass) (NutrientProfile, error) {
	return a.Aggregate(item.Ingredients, &weight)
}

// Reference aggregates item at ReferenceWeight.
func (a *Aggregator) Reference(item FoodItem) (NutrientProfile, error) {
	w := ReferenceWeight
	return a.Aggregate(item.Ingredients, &w)
}

// Scale rescales an existing profile to target.
func Scale(p NutrientProfile, target UnitMass) (NutrientProfile, error) {
	fromG, err := massGrams(p.weight)
	if err != nil {
		return NutrientProfile{}, fmt.Errorf("profile weight: %w", err)
	}
	toG, err := massGrams(target)
	if err != nil {
		return NutrientProfile{}, fmt.Errorf("target weight: %w", err)
	}
	if fromG == 0 {
		return zeroProfile(target), nil
	}
	ratio := toG / fromG
	values := make(map[NutrientKey]UnitMass, len(p.values))
	for k, v := range p.values {
		values[k] = UnitMass{Value: v.Value * ratio, Unit: v.Unit}
	}
	return NutrientProfile{weight: target, values: values}, nil
}

func Aggregate(ings []Ingredient, target *UnitMass) (NutrientProfile, error) {
	return defaultAggregator.Aggregate(ings, target)
}

func SelectedSize(item FoodItem) (NutrientProfile, error) {
	return defaultAggregator.SelectedSize(item)
}

func ForWeight(item FoodItem, weight UnitMass) (NutrientProfile, error) {
	return defaultAggregator.ForWeight(item, weight)
}

func Reference(item FoodItem) (NutrientProfile, error) {
	return defaultAggregator.Reference(item)
}

// fraction is the share of the reference profile that ing's serving represents.
func (a *Aggregator) fraction(ing Ingredient) (float64, error) {
	servingG, err := massGrams(ServingWeight(ing))
	if err != nil {
		return 0, fmt.Errorf("ingredient %q serving: %w", ing.Name, err)
	}
	ref := ing.ReferenceNutrients.Weight()
	refG, err := massGrams(ref)
	if err != nil {
		return 0, fmt.Errorf("ingredient %q reference weight: %w", ing.Name, err)
	}
	if refG == 0 {
		a.logger().Warn("ingredient has no reference weight, ignoring its nutrients",
			"ingredient_id", ing.ID, "ingredient", ing.Name)
		return 0, nil
	}
	return servingG / refG, nil
}

func (a *Aggregator) reportMissingServings(ings []Ingredient) {
	for _, ing := range ings {
		if _, err := ResolveServingWeight(ing.Amount); errors.Is(err, ErrMissingServingUnit) {
			a.logger().Warn("ingredient selected unit missing, using zero weight",
				"ingredient_id", ing.ID, "ingredient", ing.Name, "selected_unit", ing.Amount.SelectedUnit)
		}
	}
}

// foldField sums one nutrient across ingredients. Ingredients without the
// nutrient contribute nothing.
func foldField(field Field, ings []Ingredient, fractions []float64) (UnitMass, error) {
	var (
		acc   UnitMass
		found bool
	)
	for i, ing := range ings {
		v, ok := ing.ReferenceNutrients.Get(field.Key)
		if !ok {
			continue
		}
		term := UnitMass{Value: v.Value * fractions[i], Unit: v.Unit}
		if err := CheckFieldUnit(field, term.Unit); err != nil {
			return UnitMass{}, fmt.Errorf("ingredient %q %s: %w", ing.Name, field.Key, err)
		}
		if !found {
			acc, found = term, true
			continue
		}
		next, err := Sum(acc, term)
		if err != nil {
			return UnitMass{}, fmt.Errorf("ingredient %q %s: %w", ing.Name, field.Key, err)
		}
		acc = next
	}
	if !found {
		return UnitMass{Value: 0, Unit: field.DefaultUnit}, nil
	}
	return acc, nil
}

// massGrams converts a weight to grams. Only mass units describe a weight.
func massGrams(m UnitMass) (float64, error) {
	g, err := ConvertToGrams(m)
	if err != nil {
		return 0, err
	}
	if !MassUnit(m.Unit) {
		return 0, fmt.Errorf("%w: %q is not a mass unit", ErrIncompatibleUnits, m.Unit)
	}
	return g, nil
}

func zeroProfile(weight UnitMass) NutrientProfile {
	values := make(map[NutrientKey]UnitMass, len(fields))
	for _, f := range fields {
		values[f.Key] = UnitMass{Value: 0, Unit: f.DefaultUnit}
	}
	return NutrientProfile{weight: weight, values: values}
}
