package service

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/saadjs/foodkit/nutrition"
)

const exportVersion = 1

type ExportIngredient struct {
	Name               string                    `json:"name"`
	IconID             string                    `json:"icon_id,omitempty"`
	ReferenceNutrients nutrition.NutrientProfile `json:"reference_nutrients"`
	SelectedUnit       string                    `json:"selected_unit"`
	SelectedQuantity   float64                   `json:"selected_quantity"`
	ServingUnits       []nutrition.ServingUnit   `json:"serving_units"`
}

type ExportFood struct {
	Name             string                  `json:"name"`
	IconID           string                  `json:"icon_id,omitempty"`
	SelectedUnit     string                  `json:"selected_unit"`
	SelectedQuantity float64                 `json:"selected_quantity"`
	ServingUnits     []nutrition.ServingUnit `json:"serving_units"`
	SourceProvider   string                  `json:"source_provider,omitempty"`
	SourceRef        string                  `json:"source_ref,omitempty"`
	Ingredients      []ExportIngredient      `json:"ingredients"`
}

type ExportData struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Config     map[string]string `json:"config,omitempty"`
	Foods      []ExportFood      `json:"foods"`
}

type ImportMode string

const (
	ImportModeFail    ImportMode = "fail"
	ImportModeSkip    ImportMode = "skip"
	ImportModeReplace ImportMode = "replace"
)

type ImportOptions struct {
	Mode   ImportMode
	DryRun bool
}

type ImportReport struct {
	Inserted  int      `json:"inserted"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Warnings  []string `json:"warnings,omitempty"`
}

func ParseImportMode(value string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ImportModeSkip:
		return ImportModeSkip, nil
	case ImportModeFail:
		return ImportModeFail, nil
	case ImportModeReplace:
		return ImportModeReplace, nil
	default:
		return "", fmt.Errorf("unsupported import mode %q (expected fail, skip, or replace)", value)
	}
}

// ExportDataSnapshot collects every food with its ingredients and the stored
// configuration.
func ExportDataSnapshot(db *sql.DB) (*ExportData, error) {
	out := &ExportData{Version: exportVersion, ExportedAt: time.Now().UTC(), Foods: make([]ExportFood, 0)}

	cfg, err := ListConfig(db)
	if err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		out.Config = cfg
	}

	summaries, err := ListFoods(db)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		item, err := ResolveFood(db, s.ID)
		if err != nil {
			return nil, fmt.Errorf("export food %q: %w", s.Name, err)
		}
		food := ExportFood{
			Name:             item.Name,
			IconID:           item.IconID,
			SelectedUnit:     item.Amount.SelectedUnit,
			SelectedQuantity: item.Amount.SelectedQuantity,
			ServingUnits:     item.Amount.ServingUnits,
			SourceProvider:   s.SourceProvider,
			SourceRef:        s.SourceRef,
			Ingredients:      make([]ExportIngredient, 0, len(item.Ingredients)),
		}
		for _, ing := range item.Ingredients {
			food.Ingredients = append(food.Ingredients, ExportIngredient{
				Name:               ing.Name,
				IconID:             ing.IconID,
				ReferenceNutrients: ing.ReferenceNutrients,
				SelectedUnit:       ing.Amount.SelectedUnit,
				SelectedQuantity:   ing.Amount.SelectedQuantity,
				ServingUnits:       ing.Amount.ServingUnits,
			})
		}
		out.Foods = append(out.Foods, food)
	}
	return out, nil
}

// ImportDataSnapshot writes data in one transaction. Foods are matched by
// case-insensitive name and handled according to opts.Mode.
func ImportDataSnapshot(db *sql.DB, data *ExportData, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{}
	if data == nil {
		return report, fmt.Errorf("import data is required")
	}
	if data.Version > exportVersion {
		return report, fmt.Errorf("unsupported export version %d", data.Version)
	}
	mode := opts.Mode
	if mode == "" {
		mode = ImportModeSkip
	}

	tx, err := db.Begin()
	if err != nil {
		return report, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range data.Config {
		if opts.DryRun {
			continue
		}
		if err := setConfig(tx, key, value); err != nil {
			report.Warnings = append(report.Warnings, err.Error())
		}
	}

	for _, food := range data.Foods {
		name := strings.TrimSpace(food.Name)
		if name == "" {
			report.Warnings = append(report.Warnings, "skipped food without a name")
			report.Skipped++
			continue
		}
		var existingID string
		err := tx.QueryRow(`SELECT id FROM foods WHERE name_norm = ?`, normalizeName(name)).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return report, fmt.Errorf("find food %q: %w", name, err)
		}

		if existingID != "" {
			report.Conflicts++
			switch mode {
			case ImportModeFail:
				return report, fmt.Errorf("food %q already exists", name)
			case ImportModeSkip:
				report.Skipped++
				continue
			}
			if !opts.DryRun {
				if _, err := tx.Exec(`DELETE FROM foods WHERE id = ?`, existingID); err != nil {
					return report, fmt.Errorf("replace food %q: %w", name, err)
				}
			}
			report.Updated++
		} else {
			report.Inserted++
		}
		if opts.DryRun {
			continue
		}
		if err := importFoodTx(tx, food); err != nil {
			return report, err
		}
	}

	if opts.DryRun {
		return report, nil
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit import: %w", err)
	}
	return report, nil
}

func importFoodTx(tx *sql.Tx, food ExportFood) error {
	foodID, err := insertFood(tx, CreateFoodInput{
		Name:             food.Name,
		IconID:           food.IconID,
		ServingUnits:     food.ServingUnits,
		SelectedUnit:     food.SelectedUnit,
		SelectedQuantity: food.SelectedQuantity,
		SourceProvider:   food.SourceProvider,
		SourceRef:        food.SourceRef,
	})
	if err != nil {
		return fmt.Errorf("import food %q: %w", food.Name, err)
	}
	for _, in := range food.Ingredients {
		ing, err := buildIngredient(IngredientInput{
			Name:             in.Name,
			IconID:           in.IconID,
			ReferenceWeight:  in.ReferenceNutrients.Weight(),
			Nutrients:        in.ReferenceNutrients.Values(),
			ServingUnits:     in.ServingUnits,
			SelectedUnit:     in.SelectedUnit,
			SelectedQuantity: in.SelectedQuantity,
		})
		if err != nil {
			return fmt.Errorf("import food %q: %w", food.Name, err)
		}
		if err := insertIngredientTx(tx, foodID, ing); err != nil {
			return fmt.Errorf("import food %q: %w", food.Name, err)
		}
	}
	return nil
}
