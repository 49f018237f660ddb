package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/saadjs/foodkit/nutrition"
)

type IngredientInput struct {
	Name             string
	IconID           string
	ReferenceWeight  nutrition.UnitMass
	Nutrients        map[nutrition.NutrientKey]nutrition.UnitMass
	ServingUnits     []nutrition.ServingUnit
	SelectedUnit     string
	SelectedQuantity float64
}

// AddIngredient appends an ingredient to a food. Without an explicit
// selection the ingredient is served at its reference weight.
func AddIngredient(db *sql.DB, foodIdentifier string, in IngredientInput) (string, error) {
	foodID, err := resolveFoodID(db, foodIdentifier)
	if err != nil {
		return "", err
	}
	ing, err := buildIngredient(in)
	if err != nil {
		return "", err
	}
	return insertIngredient(db, foodID, ing)
}

// AddFoodAsIngredient adds another stored food to a food, using the source
// food's reference profile.
func AddFoodAsIngredient(db *sql.DB, foodIdentifier, sourceIdentifier string, serving nutrition.UnitMass, logger *slog.Logger) (string, error) {
	foodID, err := resolveFoodID(db, foodIdentifier)
	if err != nil {
		return "", err
	}
	source, err := ResolveFood(db, sourceIdentifier)
	if err != nil {
		return "", err
	}
	if source.ID == foodID {
		return "", fmt.Errorf("food %q cannot contain itself", source.Name)
	}
	agg := &nutrition.Aggregator{Logger: logger}
	ref, err := agg.Reference(*source)
	if err != nil {
		return "", fmt.Errorf("reference nutrients for %q: %w", source.Name, err)
	}
	in := IngredientInput{
		Name:             source.Name,
		IconID:           source.IconID,
		ReferenceWeight:  ref.Weight(),
		Nutrients:        ref.Values(),
		ServingUnits:     source.Amount.ServingUnits,
		SelectedUnit:     source.Amount.SelectedUnit,
		SelectedQuantity: source.Amount.SelectedQuantity,
	}
	if serving.Unit != "" {
		grams, err := nutrition.ConvertToGrams(serving)
		if err != nil {
			return "", err
		}
		if !nutrition.MassUnit(serving.Unit) {
			return "", fmt.Errorf("serving of %q must be a mass unit, got %q", source.Name, serving.Unit)
		}
		if grams <= 0 {
			return "", fmt.Errorf("serving of %q must be > 0", source.Name)
		}
		in.SelectedUnit = GramServingUnit
		in.SelectedQuantity = grams
	}
	ing, err := buildIngredient(in)
	if err != nil {
		return "", err
	}
	return insertIngredient(db, foodID, ing)
}

// SelectIngredientServing changes the selected serving of an ingredient.
func SelectIngredientServing(db *sql.DB, ingredientID, unitName string, quantity float64) error {
	ing, err := resolveIngredient(db, ingredientID)
	if err != nil {
		return err
	}
	amount := ing.Amount
	amount.SelectedUnit = strings.TrimSpace(unitName)
	amount.SelectedQuantity = quantity
	if err := validateSelection(amount); err != nil {
		return err
	}
	if _, err := db.Exec(`
UPDATE ingredients SET selected_unit = ?, selected_quantity = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, amount.SelectedUnit, amount.SelectedQuantity, ing.ID); err != nil {
		return fmt.Errorf("select ingredient serving: %w", err)
	}
	return nil
}

func RemoveIngredient(db *sql.DB, ingredientID string) error {
	ingredientID = strings.TrimSpace(ingredientID)
	if ingredientID == "" {
		return fmt.Errorf("ingredient id is required")
	}
	res, err := db.Exec(`DELETE FROM ingredients WHERE id = ?`, ingredientID)
	if err != nil {
		return fmt.Errorf("delete ingredient %s: %w", ingredientID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ingredient %s not found", ingredientID)
	}
	return nil
}

func buildIngredient(in IngredientInput) (nutrition.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient name is required")
	}
	refG, err := nutrition.ConvertToGrams(in.ReferenceWeight)
	if err != nil {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient %q reference weight: %w", name, err)
	}
	if !nutrition.MassUnit(in.ReferenceWeight.Unit) {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient %q reference weight must be a mass unit, got %q", name, in.ReferenceWeight.Unit)
	}
	if refG <= 0 {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient %q reference weight must be > 0", name)
	}
	for key, v := range in.Nutrients {
		field, ok := nutrition.LookupField(key)
		if !ok {
			return nutrition.Ingredient{}, fmt.Errorf("unknown nutrient %q", key)
		}
		if err := validateNonNegativeFloat(string(key), v.Value); err != nil {
			return nutrition.Ingredient{}, err
		}
		if err := nutrition.CheckFieldUnit(field, v.Unit); err != nil {
			return nutrition.Ingredient{}, fmt.Errorf("nutrient %s: %w", key, err)
		}
	}
	amount, err := buildAmount(in.ServingUnits, in.SelectedUnit, in.SelectedQuantity, refG)
	if err != nil {
		return nutrition.Ingredient{}, err
	}
	return nutrition.Ingredient{
		ID:                 uuid.NewString(),
		Name:               name,
		IconID:             strings.TrimSpace(in.IconID),
		Weight:             in.ReferenceWeight,
		ReferenceNutrients: nutrition.NewProfile(in.ReferenceWeight, in.Nutrients),
		Amount:             amount,
	}, nil
}

func insertIngredient(db *sql.DB, foodID string, ing nutrition.Ingredient) (string, error) {
	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin ingredient tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertIngredientTx(tx, foodID, ing); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit ingredient: %w", err)
	}
	return ing.ID, nil
}

// insertIngredientTx appends ing after the food's last ingredient.
func insertIngredientTx(tx *sql.Tx, foodID string, ing nutrition.Ingredient) error {
	nutrientsJSON, err := json.Marshal(ing.ReferenceNutrients)
	if err != nil {
		return fmt.Errorf("marshal reference nutrients: %w", err)
	}
	servingJSON, err := encodeServingUnits(ing.Amount.ServingUnits)
	if err != nil {
		return err
	}
	ref := ing.ReferenceNutrients.Weight()

	var position int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM ingredients WHERE food_id = ?`, foodID).Scan(&position); err != nil {
		return fmt.Errorf("resolve ingredient position: %w", err)
	}
	_, err = tx.Exec(`
INSERT INTO ingredients(id, food_id, position, name, icon_id, reference_weight_value, reference_weight_unit, reference_nutrients_json, selected_unit, selected_quantity, serving_units_json)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, ing.ID, foodID, position, ing.Name, ing.IconID, ref.Value, ref.Unit, string(nutrientsJSON), ing.Amount.SelectedUnit, ing.Amount.SelectedQuantity, servingJSON)
	if err != nil {
		return fmt.Errorf("add ingredient: %w", err)
	}
	if _, err := tx.Exec(`UPDATE foods SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, foodID); err != nil {
		return fmt.Errorf("touch food: %w", err)
	}
	return nil
}

const ingredientColumns = `id, name, icon_id, reference_weight_value, reference_weight_unit, reference_nutrients_json, selected_unit, selected_quantity, serving_units_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (nutrition.Ingredient, error) {
	var (
		ing           nutrition.Ingredient
		ref           nutrition.UnitMass
		nutrientsJSON string
		servingJSON   string
	)
	if err := row.Scan(&ing.ID, &ing.Name, &ing.IconID, &ref.Value, &ref.Unit, &nutrientsJSON, &ing.Amount.SelectedUnit, &ing.Amount.SelectedQuantity, &servingJSON); err != nil {
		return nutrition.Ingredient{}, err
	}
	var profile nutrition.NutrientProfile
	if err := json.Unmarshal([]byte(nutrientsJSON), &profile); err != nil {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient %q nutrients: %w", ing.Name, err)
	}
	ing.ReferenceNutrients = nutrition.NewProfile(ref, profile.Values())
	ing.Weight = ref
	units, err := decodeServingUnits(servingJSON)
	if err != nil {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient %q: %w", ing.Name, err)
	}
	ing.Amount.ServingUnits = units
	ing.Amount.Weight = nutrition.ServingWeight(ing)
	return ing, nil
}

func listIngredients(db *sql.DB, foodID string) ([]nutrition.Ingredient, error) {
	rows, err := db.Query(`SELECT `+ingredientColumns+` FROM ingredients WHERE food_id = ? ORDER BY position ASC`, foodID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()
	items := make([]nutrition.Ingredient, 0)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		items = append(items, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}
	return items, nil
}

func resolveIngredient(db *sql.DB, ingredientID string) (nutrition.Ingredient, error) {
	ingredientID = strings.TrimSpace(ingredientID)
	if ingredientID == "" {
		return nutrition.Ingredient{}, fmt.Errorf("ingredient id is required")
	}
	ing, err := scanIngredient(db.QueryRow(`SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`, ingredientID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nutrition.Ingredient{}, fmt.Errorf("ingredient %s not found", ingredientID)
		}
		return nutrition.Ingredient{}, fmt.Errorf("resolve ingredient %s: %w", ingredientID, err)
	}
	return ing, nil
}
