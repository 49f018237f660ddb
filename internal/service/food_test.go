package service_test

import (
	"database/sql"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
)

func near(got, want float64) bool {
	return math.Abs(got-want) <= 1e-6*math.Max(1, math.Abs(want))
}

// seedOatmeal stores 40 g oats (380 kcal/100 g) with a 200 ml cup of milk
// (64 kcal/100 ml): 240 g and 280 kcal in total.
func seedOatmeal(t *testing.T, db *sql.DB) string {
	t.Helper()
	id, err := service.CreateFood(db, service.CreateFoodInput{Name: "Oatmeal"})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	if _, err := service.AddIngredient(db, "oatmeal", service.IngredientInput{
		Name:            "Oats",
		ReferenceWeight: nutrition.Grams(100),
		Nutrients: map[nutrition.NutrientKey]nutrition.UnitMass{
			nutrition.Calories: {Value: 380, Unit: nutrition.UnitKcal},
			nutrition.Protein:  nutrition.Grams(13),
		},
		SelectedUnit:     service.GramServingUnit,
		SelectedQuantity: 40,
	}); err != nil {
		t.Fatalf("add oats: %v", err)
	}
	if _, err := service.AddIngredient(db, id, service.IngredientInput{
		Name:            "Milk",
		ReferenceWeight: nutrition.UnitMass{Value: 100, Unit: "ml"},
		Nutrients: map[nutrition.NutrientKey]nutrition.UnitMass{
			nutrition.Calories: {Value: 64, Unit: nutrition.UnitKcal},
			nutrition.Calcium:  {Value: 120, Unit: nutrition.UnitMilligram},
		},
		ServingUnits:     []nutrition.ServingUnit{{UnitName: "cup", Value: 200, Unit: "ml"}},
		SelectedUnit:     "cup",
		SelectedQuantity: 1,
	}); err != nil {
		t.Fatalf("add milk: %v", err)
	}
	return id
}

func TestCreateFoodRejectsDuplicateNames(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	if _, err := service.CreateFood(db, service.CreateFoodInput{Name: "Green  Salad"}); err != nil {
		t.Fatalf("create food: %v", err)
	}
	_, err := service.CreateFood(db, service.CreateFoodInput{Name: "green salad"})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := service.CreateFood(db, service.CreateFoodInput{Name: "  "}); err == nil {
		t.Fatalf("expected empty name to fail")
	}
}

func TestResolveFoodLoadsIngredientsInOrder(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	id := seedOatmeal(t, db)

	item, err := service.ResolveFood(db, "OATMEAL")
	if err != nil {
		t.Fatalf("resolve food: %v", err)
	}
	if item.ID != id {
		t.Fatalf("expected id %s, got %s", id, item.ID)
	}
	if len(item.Ingredients) != 2 || item.Ingredients[0].Name != "Oats" || item.Ingredients[1].Name != "Milk" {
		t.Fatalf("unexpected ingredients: %+v", item.Ingredients)
	}
	if item.Weight.Unit != nutrition.UnitGram || !near(item.Weight.Value, 240) {
		t.Fatalf("expected 240 g total, got %+v", item.Weight)
	}
	if item.Amount.SelectedUnit != service.GramServingUnit || item.Amount.SelectedQuantity != 100 {
		t.Fatalf("expected default 100 g selection, got %+v", item.Amount)
	}

	foods, err := service.ListFoods(db)
	if err != nil {
		t.Fatalf("list foods: %v", err)
	}
	if len(foods) != 1 || foods[0].IngredientCount != 2 || foods[0].SourceProvider != service.SourceManual {
		t.Fatalf("unexpected summaries: %+v", foods)
	}

	if _, err := service.ResolveFood(db, "porridge"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNutrientsForFoodBases(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)

	if err := service.AddFoodServingUnit(db, "oatmeal", nutrition.ServingUnit{UnitName: "bowl", Value: 240, Unit: "g"}); err != nil {
		t.Fatalf("add serving unit: %v", err)
	}
	if err := service.SelectFoodServing(db, "oatmeal", "bowl", 1); err != nil {
		t.Fatalf("select serving: %v", err)
	}

	cases := []struct {
		name     string
		query    service.NutrientQuery
		calories float64
		weight   float64
	}{
		{name: "selected", query: service.NutrientQuery{Basis: service.BasisSelected}, calories: 280, weight: 240},
		{name: "weight", query: service.NutrientQuery{Basis: service.BasisWeight, Weight: nutrition.Grams(120)}, calories: 140, weight: 120},
		{name: "reference", query: service.NutrientQuery{Basis: service.BasisReference}, calories: 280.0 * 100 / 240, weight: 100},
	}
	for _, tc := range cases {
		got, err := service.NutrientsForFood(db, "oatmeal", tc.query)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if cal := got.Profile.Values()[nutrition.Calories]; !near(cal.Value, tc.calories) || cal.Unit != nutrition.UnitKcal {
			t.Fatalf("%s: expected %.3f kcal, got %+v", tc.name, tc.calories, cal)
		}
		if w := got.Profile.Weight(); !near(w.Value, tc.weight) {
			t.Fatalf("%s: expected weight %.1f, got %+v", tc.name, tc.weight, w)
		}
	}

	if _, err := service.NutrientsForFood(db, "oatmeal", service.NutrientQuery{Basis: service.BasisWeight}); err == nil {
		t.Fatalf("expected weight basis without weight to fail")
	}
}

func TestSelectFoodServingRejectsUnknownUnit(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)

	err := service.SelectFoodServing(db, "oatmeal", "slice", 1)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Fatalf("expected unavailable serving error, got %v", err)
	}
	if err := service.AddFoodServingUnit(db, "oatmeal", nutrition.ServingUnit{UnitName: "slice", Value: 1, Unit: "stone"}); !errors.Is(err, nutrition.ErrUnknownUnit) {
		t.Fatalf("expected unknown unit error, got %v", err)
	}
	if err := service.AddFoodServingUnit(db, "oatmeal", nutrition.ServingUnit{UnitName: "slice", Value: 1, Unit: "kcal"}); err == nil {
		t.Fatalf("expected energy serving unit to fail")
	}
}

func TestAddIngredientValidation(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	id := seedOatmeal(t, db)

	base := service.IngredientInput{Name: "Honey", ReferenceWeight: nutrition.Grams(100)}

	bad := base
	bad.ReferenceWeight = nutrition.Grams(0)
	if _, err := service.AddIngredient(db, id, bad); err == nil {
		t.Fatalf("expected zero reference weight to fail")
	}
	bad = base
	bad.Nutrients = map[nutrition.NutrientKey]nutrition.UnitMass{"umami": nutrition.Grams(1)}
	if _, err := service.AddIngredient(db, id, bad); err == nil {
		t.Fatalf("expected unknown nutrient to fail")
	}
	bad = base
	bad.Nutrients = map[nutrition.NutrientKey]nutrition.UnitMass{nutrition.Sugars: {Value: 80, Unit: "spoons"}}
	if _, err := service.AddIngredient(db, id, bad); !errors.Is(err, nutrition.ErrUnknownUnit) {
		t.Fatalf("expected unknown unit error, got %v", err)
	}
	bad = base
	bad.Nutrients = map[nutrition.NutrientKey]nutrition.UnitMass{nutrition.Sugars: nutrition.Grams(-1)}
	if _, err := service.AddIngredient(db, id, bad); err == nil {
		t.Fatalf("expected negative value to fail")
	}
	bad = base
	bad.Nutrients = map[nutrition.NutrientKey]nutrition.UnitMass{nutrition.VitaminA: {Value: 300, Unit: "µg"}}
	if _, err := service.AddIngredient(db, id, bad); !errors.Is(err, nutrition.ErrIncompatibleUnits) {
		t.Fatalf("expected vitamin A in µg to fail, got %v", err)
	}
	bad = base
	bad.Nutrients = map[nutrition.NutrientKey]nutrition.UnitMass{nutrition.Calories: nutrition.Grams(20)}
	if _, err := service.AddIngredient(db, id, bad); !errors.Is(err, nutrition.ErrIncompatibleUnits) {
		t.Fatalf("expected calories in grams to fail, got %v", err)
	}
	bad = base
	bad.ReferenceWeight = nutrition.UnitMass{Value: 100, Unit: "kcal"}
	if _, err := service.AddIngredient(db, id, bad); err == nil {
		t.Fatalf("expected energy reference weight to fail")
	}
	if _, err := service.AddIngredient(db, "missing", base); err == nil {
		t.Fatalf("expected missing food to fail")
	}
}

func TestIngredientServingAndRemoval(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)

	item, err := service.ResolveFood(db, "oatmeal")
	if err != nil {
		t.Fatalf("resolve food: %v", err)
	}
	milk := item.Ingredients[1]
	if err := service.SelectIngredientServing(db, milk.ID, "cup", 2); err != nil {
		t.Fatalf("select ingredient serving: %v", err)
	}
	if err := service.SelectIngredientServing(db, milk.ID, "glass", 1); err == nil {
		t.Fatalf("expected unknown serving to fail")
	}
	item, err = service.ResolveFood(db, "oatmeal")
	if err != nil {
		t.Fatalf("resolve food: %v", err)
	}
	if !near(item.Weight.Value, 440) {
		t.Fatalf("expected 440 g after doubling milk, got %+v", item.Weight)
	}

	if err := service.RemoveIngredient(db, milk.ID); err != nil {
		t.Fatalf("remove ingredient: %v", err)
	}
	if err := service.RemoveIngredient(db, milk.ID); err == nil {
		t.Fatalf("expected second removal to fail")
	}
	item, err = service.ResolveFood(db, "oatmeal")
	if err != nil {
		t.Fatalf("resolve food: %v", err)
	}
	if len(item.Ingredients) != 1 {
		t.Fatalf("expected one ingredient left, got %d", len(item.Ingredients))
	}
}

func TestAddFoodAsIngredientUsesReferenceProfile(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)

	breakfastID, err := service.CreateFood(db, service.CreateFoodInput{
		Name:             "Breakfast",
		SelectedUnit:     service.GramServingUnit,
		SelectedQuantity: 120,
	})
	if err != nil {
		t.Fatalf("create breakfast: %v", err)
	}
	if _, err := service.AddFoodAsIngredient(db, breakfastID, "oatmeal", nutrition.Grams(120), nil); err != nil {
		t.Fatalf("add food as ingredient: %v", err)
	}
	if _, err := service.AddFoodAsIngredient(db, breakfastID, "breakfast", nutrition.Grams(10), nil); err == nil {
		t.Fatalf("expected self reference to fail")
	}
	if _, err := service.AddFoodAsIngredient(db, breakfastID, "oatmeal", nutrition.UnitMass{Value: 100, Unit: "kcal"}, nil); err == nil || !strings.Contains(err.Error(), "mass unit") {
		t.Fatalf("expected energy serving to fail, got %v", err)
	}

	got, err := service.NutrientsForFood(db, "breakfast", service.NutrientQuery{})
	if err != nil {
		t.Fatalf("nutrients: %v", err)
	}
	if cal := got.Profile.Values()[nutrition.Calories]; !near(cal.Value, 140) {
		t.Fatalf("expected 140 kcal, got %+v", cal)
	}
	if ca := got.Profile.Values()[nutrition.Calcium]; ca.Unit != nutrition.UnitMilligram || !near(ca.Value, 120) {
		t.Fatalf("expected 120 mg calcium, got %+v", ca)
	}
}

func TestDeleteFoodCascades(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)

	if err := service.DeleteFood(db, "Oatmeal"); err != nil {
		t.Fatalf("delete food: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM ingredients`).Scan(&n); err != nil {
		t.Fatalf("count ingredients: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected ingredients to be deleted, got %d", n)
	}
}

func TestParseBasis(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]service.Basis{
		"":          service.BasisSelected,
		"Selected":  service.BasisSelected,
		"weight":    service.BasisWeight,
		"100g":      service.BasisReference,
		"reference": service.BasisReference,
	} {
		got, err := service.ParseBasis(in)
		if err != nil || got != want {
			t.Fatalf("ParseBasis(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := service.ParseBasis("per-cup"); err == nil {
		t.Fatalf("expected unsupported basis to fail")
	}
}

func TestDisplayAmount(t *testing.T) {
	t.Parallel()

	field, _ := nutrition.LookupField(nutrition.Calories)
	got := service.DisplayAmount(field, nutrition.UnitMass{Value: 418.4, Unit: "kJ"})
	if got.Unit != nutrition.UnitKcal || !near(got.Value, 100) {
		t.Fatalf("expected 100 kcal, got %+v", got)
	}
	sodium, _ := nutrition.LookupField(nutrition.Sodium)
	got = service.DisplayAmount(sodium, nutrition.Grams(0.5))
	if got.Unit != sodium.DefaultUnit {
		t.Fatalf("expected %s, got %+v", sodium.DefaultUnit, got)
	}
}

func TestCreateFoodKeepsExplicitZeroQuantity(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	cases := []struct {
		name     string
		in       service.CreateFoodInput
		unit     string
		quantity float64
	}{
		{"default", service.CreateFoodInput{Name: "Plain"}, service.GramServingUnit, 100},
		{"zero grams", service.CreateFoodInput{Name: "Empty Bowl", SelectedUnit: service.GramServingUnit}, service.GramServingUnit, 0},
		{"zero slices", service.CreateFoodInput{
			Name:         "Loaf",
			ServingUnits: []nutrition.ServingUnit{{UnitName: "slice", Value: 30, Unit: "g"}},
			SelectedUnit: "slice",
		}, "slice", 0},
		{"quantity only", service.CreateFoodInput{Name: "Rice", SelectedQuantity: 180}, service.GramServingUnit, 180},
	}
	for _, tc := range cases {
		id, err := service.CreateFood(db, tc.in)
		if err != nil {
			t.Fatalf("%s: create: %v", tc.name, err)
		}
		item, err := service.ResolveFood(db, id)
		if err != nil {
			t.Fatalf("%s: resolve: %v", tc.name, err)
		}
		if item.Amount.SelectedUnit != tc.unit || item.Amount.SelectedQuantity != tc.quantity {
			t.Fatalf("%s: expected %g %s, got %+v", tc.name, tc.quantity, tc.unit, item.Amount)
		}
	}
}
