package service_test

import (
	"encoding/json"
	"testing"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
)

func TestExportImportRoundTripKeepsNutrients(t *testing.T) {
	t.Parallel()
	src := newTestDB(t)
	seedOatmeal(t, src)
	if err := service.SetConfig(src, service.ConfigDefaultBasis, "reference"); err != nil {
		t.Fatalf("set config: %v", err)
	}

	snapshot, err := service.ExportDataSnapshot(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal export: %v", err)
	}
	var payload service.ExportData
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(payload.Foods) != 1 || len(payload.Foods[0].Ingredients) != 2 {
		t.Fatalf("unexpected export payload: %+v", payload)
	}

	dst := newTestDB(t)
	report, err := service.ImportDataSnapshot(dst, &payload, service.ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Inserted != 1 || report.Conflicts != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if v, ok, _ := service.GetConfig(dst, service.ConfigDefaultBasis); !ok || v != "reference" {
		t.Fatalf("expected config to be imported, got %q", v)
	}

	res, err := service.NutrientsForFood(dst, "oatmeal", service.NutrientQuery{Basis: service.BasisSelected})
	if err != nil {
		t.Fatalf("nutrients: %v", err)
	}
	if got := res.Profile.Value(nutrition.Calories); !near(got, 280) {
		t.Fatalf("expected 280 kcal after import, got %v", got)
	}
}

func TestImportModes(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedOatmeal(t, db)
	snapshot, err := service.ExportDataSnapshot(db)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, err := service.ImportDataSnapshot(db, snapshot, service.ImportOptions{Mode: service.ImportModeFail}); err == nil {
		t.Fatalf("expected fail mode to reject existing food")
	}

	report, err := service.ImportDataSnapshot(db, snapshot, service.ImportOptions{Mode: service.ImportModeSkip})
	if err != nil {
		t.Fatalf("skip import: %v", err)
	}
	if report.Skipped != 1 || report.Inserted != 0 {
		t.Fatalf("unexpected skip report: %+v", report)
	}

	snapshot.Foods[0].Ingredients = snapshot.Foods[0].Ingredients[:1]
	dry, err := service.ImportDataSnapshot(db, snapshot, service.ImportOptions{Mode: service.ImportModeReplace, DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.Updated != 1 {
		t.Fatalf("unexpected dry run report: %+v", dry)
	}
	item, err := service.ResolveFood(db, "oatmeal")
	if err != nil || len(item.Ingredients) != 2 {
		t.Fatalf("dry run must not write, got %+v err=%v", item, err)
	}

	if _, err := service.ImportDataSnapshot(db, snapshot, service.ImportOptions{Mode: service.ImportModeReplace}); err != nil {
		t.Fatalf("replace import: %v", err)
	}
	item, err = service.ResolveFood(db, "oatmeal")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(item.Ingredients) != 1 || item.Ingredients[0].Name != "Oats" {
		t.Fatalf("expected replaced food with only oats, got %+v", item.Ingredients)
	}
}

func TestParseImportMode(t *testing.T) {
	t.Parallel()
	if m, err := service.ParseImportMode(""); err != nil || m != service.ImportModeSkip {
		t.Fatalf("expected default skip, got %q err=%v", m, err)
	}
	if _, err := service.ParseImportMode("merge"); err == nil {
		t.Fatalf("expected merge to be rejected")
	}
}

func TestExportImportKeepsZeroSelection(t *testing.T) {
	t.Parallel()
	src := newTestDB(t)
	seedOatmeal(t, src)
	if err := service.SelectFoodServing(src, "oatmeal", service.GramServingUnit, 0); err != nil {
		t.Fatalf("select zero: %v", err)
	}
	item, err := service.ResolveFood(src, "oatmeal")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := service.SelectIngredientServing(src, item.Ingredients[1].ID, "cup", 0); err != nil {
		t.Fatalf("select zero cups: %v", err)
	}

	snapshot, err := service.ExportDataSnapshot(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	dst := newTestDB(t)
	if _, err := service.ImportDataSnapshot(dst, snapshot, service.ImportOptions{}); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := service.ResolveFood(dst, "oatmeal")
	if err != nil {
		t.Fatalf("resolve imported: %v", err)
	}
	if got.Amount.SelectedUnit != service.GramServingUnit || got.Amount.SelectedQuantity != 0 {
		t.Fatalf("food selection changed on import: %+v", got.Amount)
	}
	milk := got.Ingredients[1]
	if milk.Amount.SelectedUnit != "cup" || milk.Amount.SelectedQuantity != 0 {
		t.Fatalf("ingredient selection changed on import: %+v", milk.Amount)
	}
}
