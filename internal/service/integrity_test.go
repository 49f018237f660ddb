package service_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
)

func TestRunDoctorFindsAndFixesBrokenSelection(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	if _, err := service.CreateFood(db, service.CreateFoodInput{Name: "Toast"}); err != nil {
		t.Fatalf("create food: %v", err)
	}
	ingID, err := service.AddIngredient(db, "toast", service.IngredientInput{
		Name:            "Bread",
		ReferenceWeight: nutrition.Grams(100),
		Nutrients: map[nutrition.NutrientKey]nutrition.UnitMass{
			nutrition.Calories: {Value: 265, Unit: nutrition.UnitKcal},
		},
	})
	if err != nil {
		t.Fatalf("add ingredient: %v", err)
	}
	if _, err := db.Exec(`UPDATE foods SET selected_unit = 'slice' WHERE name = 'Toast'`); err != nil {
		t.Fatalf("break selection: %v", err)
	}
	if _, err := db.Exec(`UPDATE ingredients SET reference_nutrients_json = '{"calories":{"value":1,"unit":"cups"}}' WHERE id = ?`, ingID); err != nil {
		t.Fatalf("break nutrients: %v", err)
	}

	report, err := service.RunDoctor(db, false)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if report.FoodsChecked != 1 || report.IngredientsChecked != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Issues) != 2 || report.Unresolved() != 2 {
		t.Fatalf("expected two issues, got %+v", report.Issues)
	}

	fixed, err := service.RunDoctor(db, true)
	if err != nil {
		t.Fatalf("doctor fix: %v", err)
	}
	if fixed.Unresolved() != 1 {
		t.Fatalf("expected only the unit issue to remain, got %+v", fixed.Issues)
	}
	for _, issue := range fixed.Issues {
		if !issue.Fixed && !strings.Contains(issue.Reason, "cups") {
			t.Fatalf("unexpected unresolved issue %+v", issue)
		}
	}

	food, err := service.ResolveFood(db, "toast")
	if err != nil {
		t.Fatalf("resolve food: %v", err)
	}
	if food.Amount.SelectedUnit != service.GramServingUnit || food.Amount.SelectedQuantity != 100 {
		t.Fatalf("selection not reset: %+v", food.Amount)
	}
}

func TestBackupRestoreVerifiesChecksum(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foodkit.db")
	if err := os.WriteFile(dbPath, []byte("sqlite bytes"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}

	backupPath := filepath.Join(dir, "backups", "foodkit-1.db")
	info, err := service.CreateBackup(dbPath, backupPath)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if info.Checksum == "" || info.SizeBytes != int64(len("sqlite bytes")) {
		t.Fatalf("unexpected backup info: %+v", info)
	}

	list, err := service.ListBackups(filepath.Dir(backupPath))
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one backup, got %+v", list)
	}

	if err := service.RestoreBackup(backupPath, dbPath, false); err == nil {
		t.Fatalf("expected restore over existing db to need force")
	}
	if err := service.RestoreBackup(backupPath, dbPath, true); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if err := os.WriteFile(backupPath, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	err = service.RestoreBackup(backupPath, filepath.Join(dir, "other.db"), false)
	if err == nil || !strings.Contains(err.Error(), "checksum") {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}
