package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/saadjs/foodkit/internal/model"
	"github.com/saadjs/foodkit/nutrition"
)

const (
	// GramServingUnit is present on every food and ingredient.
	GramServingUnit = "gram"

	SourceManual = "manual"
)

type CreateFoodInput struct {
	Name             string
	IconID           string
	ServingUnits     []nutrition.ServingUnit
	SelectedUnit     string
	SelectedQuantity float64
	SourceProvider   string
	SourceRef        string
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func CreateFood(db *sql.DB, in CreateFoodInput) (string, error) {
	return insertFood(db, in)
}

func insertFood(q execer, in CreateFoodInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", fmt.Errorf("food name is required")
	}
	amount, err := buildAmount(in.ServingUnits, in.SelectedUnit, in.SelectedQuantity, 100)
	if err != nil {
		return "", err
	}
	servingJSON, err := encodeServingUnits(amount.ServingUnits)
	if err != nil {
		return "", err
	}
	source := strings.TrimSpace(in.SourceProvider)
	if source == "" {
		source = SourceManual
	}
	id := uuid.NewString()
	_, err = q.Exec(`
INSERT INTO foods(id, name, name_norm, icon_id, selected_unit, selected_quantity, serving_units_json, source_provider, source_ref)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, name, normalizeName(name), strings.TrimSpace(in.IconID), amount.SelectedUnit, amount.SelectedQuantity, servingJSON, source, strings.TrimSpace(in.SourceRef))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return "", fmt.Errorf("food %q already exists", name)
		}
		return "", fmt.Errorf("create food: %w", err)
	}
	return id, nil
}

func ListFoods(db *sql.DB) ([]model.FoodSummary, error) {
	rows, err := db.Query(`
SELECT f.id, f.name, f.icon_id, f.selected_unit, f.selected_quantity, f.source_provider, f.source_ref, f.created_at, f.updated_at,
       (SELECT COUNT(1) FROM ingredients i WHERE i.food_id = f.id)
FROM foods f
ORDER BY f.name_norm ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	items := make([]model.FoodSummary, 0)
	for rows.Next() {
		var f model.FoodSummary
		if err := rows.Scan(&f.ID, &f.Name, &f.IconID, &f.SelectedUnit, &f.SelectedQuantity, &f.SourceProvider, &f.SourceRef, &f.CreatedAt, &f.UpdatedAt, &f.IngredientCount); err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foods: %w", err)
	}
	return items, nil
}

// ResolveFood loads a food and its ingredients by id or case-insensitive name.
func ResolveFood(db *sql.DB, idOrName string) (*nutrition.FoodItem, error) {
	id, err := resolveFoodID(db, idOrName)
	if err != nil {
		return nil, err
	}
	var (
		item        nutrition.FoodItem
		servingJSON string
	)
	err = db.QueryRow(`
SELECT id, name, icon_id, selected_unit, selected_quantity, serving_units_json
FROM foods WHERE id = ?
`, id).Scan(&item.ID, &item.Name, &item.IconID, &item.Amount.SelectedUnit, &item.Amount.SelectedQuantity, &servingJSON)
	if err != nil {
		return nil, fmt.Errorf("load food %q: %w", idOrName, err)
	}
	if item.Amount.ServingUnits, err = decodeServingUnits(servingJSON); err != nil {
		return nil, fmt.Errorf("food %q: %w", item.Name, err)
	}
	item.Amount.Weight = nutrition.FoodWeight(item)

	ings, err := listIngredients(db, item.ID)
	if err != nil {
		return nil, err
	}
	item.Ingredients = ings
	total, err := nutrition.IngredientWeight(ings)
	if err != nil {
		return nil, fmt.Errorf("food %q: %w", item.Name, err)
	}
	item.Weight = total
	return &item, nil
}

func DeleteFood(db *sql.DB, idOrName string) error {
	id, err := resolveFoodID(db, idOrName)
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM foods WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete food %q: %w", idOrName, err)
	}
	return nil
}

// SelectFoodServing changes the selected serving of a food.
func SelectFoodServing(db *sql.DB, idOrName, unitName string, quantity float64) error {
	item, err := ResolveFood(db, idOrName)
	if err != nil {
		return err
	}
	amount := item.Amount
	amount.SelectedUnit = strings.TrimSpace(unitName)
	amount.SelectedQuantity = quantity
	if err := validateSelection(amount); err != nil {
		return err
	}
	if _, err := db.Exec(`
UPDATE foods SET selected_unit = ?, selected_quantity = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, amount.SelectedUnit, amount.SelectedQuantity, item.ID); err != nil {
		return fmt.Errorf("select food serving: %w", err)
	}
	return nil
}

// AddFoodServingUnit adds or replaces a named serving unit on a food.
func AddFoodServingUnit(db *sql.DB, idOrName string, su nutrition.ServingUnit) error {
	item, err := ResolveFood(db, idOrName)
	if err != nil {
		return err
	}
	units, err := upsertServingUnit(item.Amount.ServingUnits, su)
	if err != nil {
		return err
	}
	servingJSON, err := encodeServingUnits(units)
	if err != nil {
		return err
	}
	if _, err := db.Exec(`UPDATE foods SET serving_units_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, servingJSON, item.ID); err != nil {
		return fmt.Errorf("add food serving unit: %w", err)
	}
	return nil
}

func resolveFoodID(db *sql.DB, idOrName string) (string, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return "", fmt.Errorf("food identifier is required")
	}
	var id string
	var err error
	if _, parseErr := uuid.Parse(idOrName); parseErr == nil {
		err = db.QueryRow(`SELECT id FROM foods WHERE id = ?`, idOrName).Scan(&id)
	} else {
		err = db.QueryRow(`SELECT id FROM foods WHERE name_norm = ?`, normalizeName(idOrName)).Scan(&id)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("food %q not found", idOrName)
		}
		return "", fmt.Errorf("resolve food %q: %w", idOrName, err)
	}
	return id, nil
}

// buildAmount validates serving units, makes sure the gram unit exists and
// applies the default selection when none is given. A given quantity is
// kept as is, zero included.
func buildAmount(units []nutrition.ServingUnit, selectedUnit string, quantity, defaultGrams float64) (nutrition.FoodAmount, error) {
	out := make([]nutrition.ServingUnit, 0, len(units)+1)
	out = append(out, nutrition.ServingUnit{UnitName: GramServingUnit, Value: 1, Unit: nutrition.UnitGram})
	for _, su := range units {
		var err error
		if out, err = upsertServingUnit(out, su); err != nil {
			return nutrition.FoodAmount{}, err
		}
	}
	amount := nutrition.FoodAmount{
		SelectedUnit:     strings.TrimSpace(selectedUnit),
		SelectedQuantity: quantity,
		ServingUnits:     out,
	}
	if amount.SelectedUnit == "" && amount.SelectedQuantity == 0 {
		amount.SelectedUnit = GramServingUnit
		amount.SelectedQuantity = defaultGrams
	} else if amount.SelectedUnit == "" {
		amount.SelectedUnit = GramServingUnit
	}
	if err := validateSelection(amount); err != nil {
		return nutrition.FoodAmount{}, err
	}
	amount.Weight, _ = nutrition.ResolveServingWeight(amount)
	return amount, nil
}

func upsertServingUnit(units []nutrition.ServingUnit, su nutrition.ServingUnit) ([]nutrition.ServingUnit, error) {
	su.UnitName = strings.TrimSpace(su.UnitName)
	su.Unit = strings.TrimSpace(su.Unit)
	if su.UnitName == "" {
		return nil, fmt.Errorf("serving unit name is required")
	}
	if su.Value <= 0 {
		return nil, fmt.Errorf("serving unit %q value must be > 0", su.UnitName)
	}
	if !nutrition.ValidUnit(su.Unit) {
		return nil, fmt.Errorf("serving unit %q: %w", su.UnitName, &nutrition.UnknownUnitError{Unit: su.Unit})
	}
	if !nutrition.MassUnit(su.Unit) {
		return nil, fmt.Errorf("serving unit %q must be a mass unit, got %q", su.UnitName, su.Unit)
	}
	out := make([]nutrition.ServingUnit, 0, len(units)+1)
	replaced := false
	for _, existing := range units {
		if existing.UnitName == su.UnitName {
			out = append(out, su)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, su)
	}
	return out, nil
}

func validateSelection(amount nutrition.FoodAmount) error {
	if amount.SelectedQuantity < 0 {
		return fmt.Errorf("selected quantity must be >= 0")
	}
	if _, ok := amount.ServingUnit(); !ok {
		names := make([]string, 0, len(amount.ServingUnits))
		for _, su := range amount.ServingUnits {
			names = append(names, su.UnitName)
		}
		return fmt.Errorf("serving unit %q not available (have: %s)", amount.SelectedUnit, strings.Join(names, ", "))
	}
	return nil
}

func encodeServingUnits(units []nutrition.ServingUnit) (string, error) {
	raw, err := json.Marshal(units)
	if err != nil {
		return "", fmt.Errorf("marshal serving units: %w", err)
	}
	return string(raw), nil
}

func decodeServingUnits(value string) ([]nutrition.ServingUnit, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []nutrition.ServingUnit{}, nil
	}
	var units []nutrition.ServingUnit
	if err := json.Unmarshal([]byte(value), &units); err != nil {
		return nil, fmt.Errorf("decode serving units: %w", err)
	}
	return units, nil
}
