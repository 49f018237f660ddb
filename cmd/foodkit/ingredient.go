package foodkit

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

var ingredientCmd = &cobra.Command{
	Use:   "ingredient",
	Short: "Manage the ingredients of a food",
}

var (
	ingName        string
	ingIcon        string
	ingRefWeight   string
	ingNutrients   []string
	ingServings    []string
	ingSelectUnit  string
	ingQuantity    float64
	ingFromFood    string
	ingFromWeight  string
	ingJSON        bool
	ingSelUnit     string
	ingSelQuantity float64
)

var ingredientAddCmd = &cobra.Command{
	Use:   "add <food>",
	Short: "Add an ingredient to a food",
	Long: `Add an ingredient to a food.

Nutrients are given per reference weight, e.g.
  foodkit ingredient add oatmeal --name oats --ref-weight 100g --nutrient calories=380kcal --nutrient protein=13g --quantity 40

Use --from-food to add another stored food as an ingredient.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(ingFromFood) != "" {
			return addFoodAsIngredient(cmd, args[0])
		}
		ref, err := nutrition.ParseUnitMass(ingRefWeight)
		if err != nil {
			return fmt.Errorf("--ref-weight: %w", err)
		}
		nutrients, err := parseNutrients(ingNutrients)
		if err != nil {
			return err
		}
		units, err := parseServingUnits(ingServings)
		if err != nil {
			return err
		}
		return withDB(func(sqldb *sql.DB) error {
			id, err := service.AddIngredient(sqldb, args[0], service.IngredientInput{
				Name:             ingName,
				IconID:           ingIcon,
				ReferenceWeight:  ref,
				Nutrients:        nutrients,
				ServingUnits:     units,
				SelectedUnit:     ingSelectUnit,
				SelectedQuantity: selectionQuantity(cmd, ingSelectUnit, ingQuantity),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added ingredient %s\n", id)
			return nil
		})
	},
}

func addFoodAsIngredient(cmd *cobra.Command, food string) error {
	serving := nutrition.UnitMass{}
	if strings.TrimSpace(ingFromWeight) != "" {
		var err error
		if serving, err = nutrition.ParseUnitMass(ingFromWeight); err != nil {
			return fmt.Errorf("--weight: %w", err)
		}
	}
	return withDB(func(sqldb *sql.DB) error {
		id, err := service.AddFoodAsIngredient(sqldb, food, ingFromFood, serving, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s as ingredient %s\n", ingFromFood, food, id)
		return nil
	})
}

var ingredientListCmd = &cobra.Command{
	Use:   "list <food>",
	Short: "List ingredients of a food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			item, err := service.ResolveFood(sqldb, args[0])
			if err != nil {
				return err
			}
			if ingJSON {
				return writeJSON(cmd.OutOrStdout(), item.Ingredients)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tSERVING\tWEIGHT\tREFERENCE\tNUTRIENTS")
			for _, ing := range item.Ingredients {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g %s\t%s\t%s\t%d\n", ing.ID, ing.Name, ing.Amount.SelectedQuantity, ing.Amount.SelectedUnit, nutrition.ServingWeight(ing), ing.ReferenceNutrients.Weight(), ing.ReferenceNutrients.Len())
			}
			return nil
		})
	},
}

var ingredientSelectCmd = &cobra.Command{
	Use:   "select <ingredient-id>",
	Short: "Choose the serving unit and quantity of an ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SelectIngredientServing(sqldb, args[0], ingSelUnit, ingSelQuantity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %g %s for ingredient %s\n", ingSelQuantity, ingSelUnit, args[0])
			return nil
		})
	},
}

var ingredientRemoveCmd = &cobra.Command{
	Use:   "remove <ingredient-id>",
	Short: "Remove an ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.RemoveIngredient(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed ingredient %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ingredientCmd)
	ingredientCmd.AddCommand(ingredientAddCmd, ingredientListCmd, ingredientSelectCmd, ingredientRemoveCmd)

	ingredientAddCmd.Flags().StringVar(&ingName, "name", "", "Ingredient name")
	ingredientAddCmd.Flags().StringVar(&ingIcon, "icon", "", "Icon identifier")
	ingredientAddCmd.Flags().StringVar(&ingRefWeight, "ref-weight", "100g", "Weight the nutrients refer to")
	ingredientAddCmd.Flags().StringArrayVar(&ingNutrients, "nutrient", nil, "Nutrient as key=<amount><unit> (repeatable)")
	ingredientAddCmd.Flags().StringArrayVar(&ingServings, "serving", nil, "Serving unit as name=<amount><unit> (repeatable)")
	ingredientAddCmd.Flags().StringVar(&ingSelectUnit, "select", "", "Selected serving unit (default gram)")
	ingredientAddCmd.Flags().Float64Var(&ingQuantity, "quantity", 0, "Selected quantity (default: the reference weight in grams)")
	ingredientAddCmd.Flags().StringVar(&ingFromFood, "from-food", "", "Add another stored food as the ingredient")
	ingredientAddCmd.Flags().StringVar(&ingFromWeight, "weight", "", "Weight of --from-food to use (default: its selected serving)")

	ingredientListCmd.Flags().BoolVar(&ingJSON, "json", false, "Output as JSON")

	ingredientSelectCmd.Flags().StringVar(&ingSelUnit, "unit", "", "Serving unit name")
	ingredientSelectCmd.Flags().Float64Var(&ingSelQuantity, "quantity", 1, "Quantity of the serving unit")
	_ = ingredientSelectCmd.MarkFlagRequired("unit")
}
