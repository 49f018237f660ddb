package foodkit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/saadjs/foodkit/internal/app"
	"github.com/saadjs/foodkit/internal/db"
	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return err
	}
	return run(sqldb)
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return app.DefaultDBPath()
}

func lookupOptions() service.LookupOptions {
	if cfg == nil {
		return service.LookupOptions{}
	}
	return service.LookupOptions{APIKey: cfg.USDAAPIKey}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(b))
	return nil
}

// parseServingUnit reads "slice=30g" into a serving unit.
func parseServingUnit(value string) (nutrition.ServingUnit, error) {
	name, amount, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return nutrition.ServingUnit{}, fmt.Errorf("invalid serving %q (expected name=<amount><unit>, e.g. slice=30g)", value)
	}
	m, err := nutrition.ParseUnitMass(amount)
	if err != nil {
		return nutrition.ServingUnit{}, fmt.Errorf("serving %q: %w", name, err)
	}
	return nutrition.ServingUnit{UnitName: strings.TrimSpace(name), Value: m.Value, Unit: m.Unit}, nil
}

func parseServingUnits(values []string) ([]nutrition.ServingUnit, error) {
	out := make([]nutrition.ServingUnit, 0, len(values))
	for _, v := range values {
		su, err := parseServingUnit(v)
		if err != nil {
			return nil, err
		}
		out = append(out, su)
	}
	return out, nil
}

// parseNutrients reads "calories=200kcal" pairs. A bare number takes the
// nutrient's default unit.
func parseNutrients(values []string) (map[nutrition.NutrientKey]nutrition.UnitMass, error) {
	out := make(map[nutrition.NutrientKey]nutrition.UnitMass, len(values))
	for _, v := range values {
		name, amount, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid nutrient %q (expected key=<amount><unit>, e.g. protein=12g)", v)
		}
		field, ok := nutrition.LookupField(nutrition.NutrientKey(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown nutrient %q", name)
		}
		if _, dup := out[field.Key]; dup {
			return nil, fmt.Errorf("nutrient %q given more than once", field.Key)
		}
		m, err := parseAmountOrDefault(amount, field.DefaultUnit)
		if err != nil {
			return nil, fmt.Errorf("nutrient %s: %w", field.Key, err)
		}
		out[field.Key] = m
	}
	return out, nil
}

func parseAmountOrDefault(amount, unit string) (nutrition.UnitMass, error) {
	amount = strings.TrimSpace(amount)
	if f, err := strconv.ParseFloat(amount, 64); err == nil {
		return nutrition.UnitMass{Value: f, Unit: unit}, nil
	}
	return nutrition.ParseUnitMass(amount)
}

// selectionQuantity defaults --quantity to one serving when --select names a
// unit and no quantity was given.
func selectionQuantity(cmd *cobra.Command, unit string, quantity float64) float64 {
	if strings.TrimSpace(unit) != "" && !cmd.Flags().Changed("quantity") {
		return 1
	}
	return quantity
}
