package foodkit

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	exportBasis  string
	importIn     string
	importMode   string
	importDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export foods (json snapshot or csv nutrient table)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(exportOut) == "" {
			return fmt.Errorf("--out is required")
		}
		return withDB(func(sqldb *sql.DB) error {
			switch strings.ToLower(strings.TrimSpace(exportFormat)) {
			case "json":
				data, err := service.ExportDataSnapshot(sqldb)
				if err != nil {
					return err
				}
				b, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal export json: %w", err)
				}
				if err := os.WriteFile(exportOut, b, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
			case "csv":
				basis, err := service.ParseBasis(exportBasis)
				if err != nil {
					return err
				}
				if basis == service.BasisWeight {
					return fmt.Errorf("csv export supports the selected or reference basis")
				}
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create export csv: %w", err)
				}
				defer f.Close()
				if err := writeNutrientsCSV(f, sqldb, basis); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported --format %q (use json or csv)", exportFormat)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported data to %s\n", exportOut)
			return nil
		})
	},
}

// writeNutrientsCSV writes one row per food with every nutrient in its
// default unit.
func writeNutrientsCSV(out io.Writer, sqldb *sql.DB, basis service.Basis) error {
	fields := nutrition.Fields()
	w := csv.NewWriter(out)
	header := []string{"name", "basis", "weight_g"}
	for _, f := range fields {
		header = append(header, string(f.Key)+"_"+strings.ToLower(f.DefaultUnit))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write export csv header: %w", err)
	}
	foods, err := service.ListFoods(sqldb)
	if err != nil {
		return err
	}
	for _, food := range foods {
		res, err := service.NutrientsForFood(sqldb, food.ID, service.NutrientQuery{Basis: basis, Logger: logger})
		if err != nil {
			return err
		}
		weightG, err := nutrition.ConvertToGrams(res.Profile.Weight())
		if err != nil {
			return fmt.Errorf("food %q weight: %w", food.Name, err)
		}
		record := []string{food.Name, string(basis), strconv.FormatFloat(weightG, 'f', -1, 64)}
		for _, f := range fields {
			v, _ := res.Profile.Get(f.Key)
			if v.Unit == "" {
				v.Unit = f.DefaultUnit
			}
			record = append(record, strconv.FormatFloat(service.DisplayAmount(f, v).Value, 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write export csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export csv: %w", err)
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import foods from a json snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importIn) == "" {
			return fmt.Errorf("--in is required")
		}
		mode, err := service.ParseImportMode(importMode)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(importIn)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		var payload service.ExportData
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parse import json: %w", err)
		}
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.ImportDataSnapshot(sqldb, &payload, service.ImportOptions{Mode: mode, DryRun: importDryRun})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import report: inserted=%d updated=%d skipped=%d conflicts=%d\n", report.Inserted, report.Updated, report.Skipped, report.Conflicts)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			if importDryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Dry-run import validated %s\n", importIn)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported data from %s\n", importIn)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file path")
	exportCmd.Flags().StringVar(&exportBasis, "basis", string(service.BasisReference), "Nutrient basis for csv: selected or reference")
	importCmd.Flags().StringVar(&importIn, "in", "", "Input file path")
	importCmd.Flags().StringVar(&importMode, "mode", string(service.ImportModeSkip), "Behaviour for existing foods: fail|skip|replace")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate and report without writing data")
}
