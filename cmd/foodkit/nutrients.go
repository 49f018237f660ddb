package foodkit

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	nutrientsBasis  string
	nutrientsWeight string
	nutrientsJSON   bool
	nutrientsAll    bool
)

type nutrientsOutput struct {
	Food      string                    `json:"food"`
	FoodID    string                    `json:"food_id"`
	Basis     service.Basis             `json:"basis"`
	Nutrients nutrition.NutrientProfile `json:"nutrients"`
}

var nutrientsCmd = &cobra.Command{
	Use:   "nutrients <food>",
	Short: "Aggregate the nutrients of a food",
	Long: `Aggregate the nutrients of a food from its ingredients.

Bases:
  selected   the food's selected serving (default)
  weight     an arbitrary weight given with --weight
  reference  100 g of the food`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			q, err := resolveNutrientQuery(cmd, sqldb)
			if err != nil {
				return err
			}
			res, err := service.NutrientsForFood(sqldb, args[0], q)
			if err != nil {
				return err
			}
			if nutrientsJSON {
				return writeJSON(cmd.OutOrStdout(), nutrientsOutput{
					Food:      res.Food.Name,
					FoodID:    res.Food.ID,
					Basis:     res.Basis,
					Nutrients: res.Profile,
				})
			}
			printNutrients(cmd, res, nutrientsAll)
			return nil
		})
	},
}

func resolveNutrientQuery(cmd *cobra.Command, sqldb *sql.DB) (service.NutrientQuery, error) {
	basisValue := nutrientsBasis
	if !cmd.Flags().Changed("basis") {
		stored, ok, err := service.GetConfig(sqldb, service.ConfigDefaultBasis)
		if err != nil {
			return service.NutrientQuery{}, err
		}
		if ok {
			basisValue = stored
		}
	}
	if strings.TrimSpace(nutrientsWeight) != "" && !cmd.Flags().Changed("basis") {
		basisValue = string(service.BasisWeight)
	}
	basis, err := service.ParseBasis(basisValue)
	if err != nil {
		return service.NutrientQuery{}, err
	}
	q := service.NutrientQuery{Basis: basis, Logger: logger}
	if basis == service.BasisWeight {
		if q.Weight, err = nutrition.ParseUnitMass(nutrientsWeight); err != nil {
			return service.NutrientQuery{}, fmt.Errorf("--weight: %w", err)
		}
	}
	return q, nil
}

func printNutrients(cmd *cobra.Command, res service.FoodNutrients, all bool) {
	out := cmd.OutOrStdout()
	title := cases.Title(language.English)
	fmt.Fprintf(out, "%s (%s basis, %s)\n", res.Food.Name, res.Basis, res.Profile.Weight())
	for _, field := range nutrition.Fields() {
		v, ok := res.Profile.Get(field.Key)
		if !ok || (!all && v.Value == 0) {
			continue
		}
		shown := service.DisplayAmount(field, v)
		fmt.Fprintf(out, "%s: %s %s\n", title.String(field.Label), strconv.FormatFloat(shown.Value, 'f', 2, 64), shown.Unit)
	}
}

func init() {
	rootCmd.AddCommand(nutrientsCmd)
	nutrientsCmd.Flags().StringVar(&nutrientsBasis, "basis", string(service.BasisSelected), "Basis: selected, weight, or reference")
	nutrientsCmd.Flags().StringVar(&nutrientsWeight, "weight", "", "Target weight for the weight basis, e.g. 250g")
	nutrientsCmd.Flags().BoolVar(&nutrientsJSON, "json", false, "Output as JSON")
	nutrientsCmd.Flags().BoolVar(&nutrientsAll, "all", false, "Include nutrients that are zero")
}
