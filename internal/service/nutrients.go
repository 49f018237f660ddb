package service

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saadjs/foodkit/nutrition"
)

type Basis string

const (
	BasisSelected  Basis = "selected"
	BasisWeight    Basis = "weight"
	BasisReference Basis = "reference"
)

func ParseBasis(value string) (Basis, error) {
	switch Basis(strings.ToLower(strings.TrimSpace(value))) {
	case "", BasisSelected:
		return BasisSelected, nil
	case BasisWeight:
		return BasisWeight, nil
	case BasisReference, "100g":
		return BasisReference, nil
	default:
		return "", fmt.Errorf("unsupported basis %q (expected selected, weight, or reference)", value)
	}
}

type NutrientQuery struct {
	Basis  Basis
	Weight nutrition.UnitMass
	Logger *slog.Logger
}

type FoodNutrients struct {
	Food    *nutrition.FoodItem
	Basis   Basis
	Profile nutrition.NutrientProfile
}

// NutrientsForFood aggregates a stored food on the requested basis.
func NutrientsForFood(db *sql.DB, idOrName string, q NutrientQuery) (FoodNutrients, error) {
	item, err := ResolveFood(db, idOrName)
	if err != nil {
		return FoodNutrients{}, err
	}
	profile, err := ProfileForItem(*item, q)
	if err != nil {
		return FoodNutrients{}, fmt.Errorf("aggregate %q: %w", item.Name, err)
	}
	return FoodNutrients{Food: item, Basis: q.Basis, Profile: profile}, nil
}

func ProfileForItem(item nutrition.FoodItem, q NutrientQuery) (nutrition.NutrientProfile, error) {
	agg := &nutrition.Aggregator{Logger: q.Logger}
	switch q.Basis {
	case "", BasisSelected:
		return agg.SelectedSize(item)
	case BasisWeight:
		if q.Weight.Unit == "" {
			return nutrition.NutrientProfile{}, fmt.Errorf("weight is required for basis %q", BasisWeight)
		}
		if err := validateNonNegativeFloat("weight", q.Weight.Value); err != nil {
			return nutrition.NutrientProfile{}, err
		}
		return agg.ForWeight(item, q.Weight)
	case BasisReference:
		return agg.Reference(item)
	default:
		return nutrition.NutrientProfile{}, fmt.Errorf("unsupported basis %q", q.Basis)
	}
}

// DisplayAmount converts v to the field's default unit when both share a
// kind, for presentation.
func DisplayAmount(field nutrition.Field, v nutrition.UnitMass) nutrition.UnitMass {
	if v.Unit == field.DefaultUnit {
		return v
	}
	converted, err := nutrition.Convert(v.Value, v.Unit, field.DefaultUnit)
	if err != nil {
		return v
	}
	return nutrition.UnitMass{Value: converted, Unit: field.DefaultUnit}
}
