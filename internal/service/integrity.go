package service

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saadjs/foodkit/nutrition"
)

const checksumSuffix = ".sha256"

type BackupInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// DoctorIssue describes one row that would make aggregation fall back or fail.
type DoctorIssue struct {
	Table  string `json:"table"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Fixed  bool   `json:"fixed,omitempty"`
}

type DoctorReport struct {
	FoodsChecked       int           `json:"foods_checked"`
	IngredientsChecked int           `json:"ingredients_checked"`
	Issues             []DoctorIssue `json:"issues"`
}

// Unresolved counts issues left after any fixes.
func (r DoctorReport) Unresolved() int {
	n := 0
	for _, issue := range r.Issues {
		if !issue.Fixed {
			n++
		}
	}
	return n
}

func CreateBackup(dbPath, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(dbPath) == "" {
		return BackupInfo{}, fmt.Errorf("db path is required")
	}
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if err := copyFile(dbPath, outPath); err != nil {
		return BackupInfo{}, err
	}
	checksum, err := fileSHA256(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+checksumSuffix, []byte(checksum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	return backupInfo(outPath)
}

// RestoreBackup copies a backup over dbPath after verifying its checksum
// sidecar when one exists.
func RestoreBackup(backupPath, dbPath string, force bool) error {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("backup path and db path are required")
	}
	if _, err := os.Stat(dbPath); err == nil && !force {
		return fmt.Errorf("target db already exists; use --force to overwrite")
	}
	info, err := backupInfo(backupPath)
	if err != nil {
		return err
	}
	if info.Checksum != "" {
		actual, err := fileSHA256(backupPath)
		if err != nil {
			return err
		}
		if info.Checksum != actual {
			return fmt.Errorf("backup checksum mismatch")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return copyFile(backupPath, dbPath)
}

func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0)
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".db" {
			continue
		}
		info, err := backupInfo(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func backupInfo(path string) (BackupInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	info := BackupInfo{Path: path, CreatedAt: st.ModTime(), SizeBytes: st.Size()}
	if b, err := os.ReadFile(path + checksumSuffix); err == nil {
		info.Checksum = strings.TrimSpace(string(b))
	}
	return info, nil
}

// RunDoctor checks every stored food and ingredient for selections that no
// longer match a serving unit, undecodable nutrients, units outside the
// conversion table and zero reference weights. With fix, broken selections
// are reset to the gram unit.
func RunDoctor(db *sql.DB, fix bool) (DoctorReport, error) {
	report := DoctorReport{Issues: make([]DoctorIssue, 0)}

	type selection struct {
		table, id, name, unit, servingJSON string
	}
	type repair struct {
		issue int
		units []nutrition.ServingUnit
	}
	selections := make([]selection, 0)
	repairs := make([]repair, 0)

	foodRows, err := db.Query(`SELECT id, name, selected_unit, serving_units_json FROM foods`)
	if err != nil {
		return report, fmt.Errorf("doctor food query: %w", err)
	}
	for foodRows.Next() {
		s := selection{table: "foods"}
		if err := foodRows.Scan(&s.id, &s.name, &s.unit, &s.servingJSON); err != nil {
			_ = foodRows.Close()
			return report, fmt.Errorf("doctor food scan: %w", err)
		}
		report.FoodsChecked++
		selections = append(selections, s)
	}
	_ = foodRows.Close()

	ingRows, err := db.Query(`SELECT id, name, selected_unit, serving_units_json, reference_weight_value, reference_weight_unit, reference_nutrients_json FROM ingredients`)
	if err != nil {
		return report, fmt.Errorf("doctor ingredient query: %w", err)
	}
	for ingRows.Next() {
		var (
			ref           nutrition.UnitMass
			nutrientsJSON string
		)
		s := selection{table: "ingredients"}
		if err := ingRows.Scan(&s.id, &s.name, &s.unit, &s.servingJSON, &ref.Value, &ref.Unit, &nutrientsJSON); err != nil {
			_ = ingRows.Close()
			return report, fmt.Errorf("doctor ingredient scan: %w", err)
		}
		report.IngredientsChecked++
		selections = append(selections, s)
		for _, reason := range ingredientProblems(ref, nutrientsJSON) {
			report.Issues = append(report.Issues, DoctorIssue{Table: s.table, ID: s.id, Name: s.name, Reason: reason})
		}
	}
	_ = ingRows.Close()

	for _, s := range selections {
		units, err := decodeServingUnits(s.servingJSON)
		if err != nil {
			report.Issues = append(report.Issues, DoctorIssue{Table: s.table, ID: s.id, Name: s.name, Reason: err.Error()})
			continue
		}
		amount := nutrition.FoodAmount{SelectedUnit: s.unit, ServingUnits: units}
		if _, ok := amount.ServingUnit(); ok {
			continue
		}
		report.Issues = append(report.Issues, DoctorIssue{Table: s.table, ID: s.id, Name: s.name,
			Reason: fmt.Sprintf("selected unit %q not among serving units", s.unit)})
		gram := nutrition.ServingUnit{UnitName: GramServingUnit, Value: 1, Unit: nutrition.UnitGram}
		fixed, err := upsertServingUnit(units, gram)
		if err != nil {
			continue
		}
		repairs = append(repairs, repair{issue: len(report.Issues) - 1, units: fixed})
	}

	if !fix || len(repairs) == 0 {
		return report, nil
	}
	tx, err := db.Begin()
	if err != nil {
		return report, fmt.Errorf("doctor fix begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, r := range repairs {
		issue := &report.Issues[r.issue]
		servingJSON, err := encodeServingUnits(r.units)
		if err != nil {
			return report, err
		}
		// Table names come from the fixed set above.
		if _, err := tx.Exec(`UPDATE `+issue.Table+` SET selected_unit = ?, selected_quantity = 100, serving_units_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			GramServingUnit, servingJSON, issue.ID); err != nil {
			return report, fmt.Errorf("doctor fix %s %s: %w", issue.Table, issue.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("doctor fix commit: %w", err)
	}
	for _, r := range repairs {
		report.Issues[r.issue].Fixed = true
	}
	return report, nil
}

func ingredientProblems(ref nutrition.UnitMass, nutrientsJSON string) []string {
	var out []string
	refG, err := nutrition.ConvertToGrams(ref)
	switch {
	case err != nil:
		out = append(out, fmt.Sprintf("reference weight: %v", err))
	case !nutrition.MassUnit(ref.Unit):
		out = append(out, fmt.Sprintf("reference weight unit %q is not a mass unit", ref.Unit))
	case refG == 0:
		out = append(out, "reference weight is zero; nutrients are ignored")
	}
	var profile nutrition.NutrientProfile
	if err := json.Unmarshal([]byte(nutrientsJSON), &profile); err != nil {
		return append(out, fmt.Sprintf("reference nutrients: %v", err))
	}
	for _, key := range profile.Keys() {
		v, _ := profile.Get(key)
		field, ok := nutrition.LookupField(key)
		if !ok {
			continue
		}
		if err := nutrition.CheckFieldUnit(field, v.Unit); err != nil {
			out = append(out, fmt.Sprintf("%s: %v", key, err))
		}
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync destination file: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
