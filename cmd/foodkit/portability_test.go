package foodkit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportImportCommands(t *testing.T) {
	env := testEnv(t)
	run := func(args ...string) string {
		t.Helper()
		out, err := runCLI(t, append(env, args...)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out
	}
	run("food", "add", "--name", "Toast")
	run("ingredient", "add", "toast", "--name", "Bread", "--nutrient", "calories=265kcal", "--quantity", "50")

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "foods.json")
	csvPath := filepath.Join(dir, "foods.csv")
	run("export", "--out", jsonPath)
	run("export", "--format", "csv", "--out", csvPath)

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][0] != "Toast" || records[1][2] != "100" || records[1][3] != "265" {
		t.Fatalf("unexpected csv records: %v", records)
	}

	other := testEnv(t)
	out, err := runCLI(t, append(other, "import", "--in", jsonPath)...)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "inserted=1") {
		t.Fatalf("unexpected import output %q", out)
	}
	if _, err := runCLI(t, append(other, "import", "--in", jsonPath, "--mode", "fail")...); err == nil {
		t.Fatalf("expected fail mode to reject existing food")
	}
	if _, err := runCLI(t, append(other, "import", "--in", jsonPath, "--mode", "merge")...); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}
