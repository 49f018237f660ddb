package foodkit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/saadjs/foodkit/nutrition"
	"github.com/spf13/cobra"
)

var foodCmd = &cobra.Command{
	Use:   "food",
	Short: "Manage foods",
}

var (
	foodName         string
	foodIcon         string
	foodServings     []string
	foodSelectUnit   string
	foodQuantity     float64
	foodJSON         bool
	selectUnit       string
	selectQuantity   float64
	servingUnitName  string
	servingUnitValue float64
	servingUnitUnit  string
)

var foodAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a food",
	RunE: func(cmd *cobra.Command, args []string) error {
		units, err := parseServingUnits(foodServings)
		if err != nil {
			return err
		}
		quantity := selectionQuantity(cmd, foodSelectUnit, foodQuantity)
		return withDB(func(sqldb *sql.DB) error {
			id, err := service.CreateFood(sqldb, service.CreateFoodInput{
				Name:             foodName,
				IconID:           foodIcon,
				ServingUnits:     units,
				SelectedUnit:     foodSelectUnit,
				SelectedQuantity: quantity,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created food %s\n", id)
			return nil
		})
	},
}

var foodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List foods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			items, err := service.ListFoods(sqldb)
			if err != nil {
				return err
			}
			if foodJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tSERVING\tINGREDIENTS\tSOURCE\tUPDATED")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g %s\t%d\t%s\t%s\n", it.ID, it.Name, it.SelectedQuantity, it.SelectedUnit, it.IngredientCount, it.SourceProvider, it.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var foodShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show a food with its ingredients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			item, err := service.ResolveFood(sqldb, args[0])
			if err != nil {
				return err
			}
			if foodJSON {
				return writeJSON(cmd.OutOrStdout(), item)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Food: %s (%s)\n", item.Name, item.ID)
			fmt.Fprintf(out, "Serving: %g %s = %s\n", item.Amount.SelectedQuantity, item.Amount.SelectedUnit, item.Amount.Weight)
			fmt.Fprintf(out, "Ingredients weight: %s\n", item.Weight)
			fmt.Fprintln(out, "Serving units:")
			for _, su := range item.Amount.ServingUnits {
				fmt.Fprintf(out, "  %s = %g %s\n", su.UnitName, su.Value, su.Unit)
			}
			fmt.Fprintln(out, "ID\tINGREDIENT\tSERVING\tWEIGHT\tREFERENCE")
			for _, ing := range item.Ingredients {
				fmt.Fprintf(out, "%s\t%s\t%g %s\t%s\t%s\n", ing.ID, ing.Name, ing.Amount.SelectedQuantity, ing.Amount.SelectedUnit, nutrition.ServingWeight(ing), ing.ReferenceNutrients.Weight())
			}
			return nil
		})
	},
}

var foodDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a food and its ingredients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.DeleteFood(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted food %s\n", args[0])
			return nil
		})
	},
}

var foodSelectCmd = &cobra.Command{
	Use:   "select <id|name>",
	Short: "Choose the serving unit and quantity of a food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SelectFoodServing(sqldb, args[0], selectUnit, selectQuantity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %g %s for %s\n", selectQuantity, selectUnit, args[0])
			return nil
		})
	},
}

var foodServingCmd = &cobra.Command{
	Use:   "serving",
	Short: "Manage serving units of a food",
}

var foodServingAddCmd = &cobra.Command{
	Use:   "add <id|name>",
	Short: "Add or update a serving unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		su := nutrition.ServingUnit{UnitName: servingUnitName, Value: servingUnitValue, Unit: servingUnitUnit}
		return withDB(func(sqldb *sql.DB) error {
			if err := service.AddFoodServingUnit(sqldb, args[0], su); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving unit %s = %g %s saved for %s\n", su.UnitName, su.Value, su.Unit, args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(foodCmd)
	foodCmd.AddCommand(foodAddCmd, foodListCmd, foodShowCmd, foodDeleteCmd, foodSelectCmd, foodServingCmd)
	foodServingCmd.AddCommand(foodServingAddCmd)

	foodAddCmd.Flags().StringVar(&foodName, "name", "", "Food name")
	foodAddCmd.Flags().StringVar(&foodIcon, "icon", "", "Icon identifier")
	foodAddCmd.Flags().StringArrayVar(&foodServings, "serving", nil, "Serving unit as name=<amount><unit> (repeatable)")
	foodAddCmd.Flags().StringVar(&foodSelectUnit, "select", "", "Selected serving unit (default gram)")
	foodAddCmd.Flags().Float64Var(&foodQuantity, "quantity", 0, "Selected quantity")
	_ = foodAddCmd.MarkFlagRequired("name")

	foodListCmd.Flags().BoolVar(&foodJSON, "json", false, "Output as JSON")
	foodShowCmd.Flags().BoolVar(&foodJSON, "json", false, "Output as JSON")

	foodSelectCmd.Flags().StringVar(&selectUnit, "unit", "", "Serving unit name")
	foodSelectCmd.Flags().Float64Var(&selectQuantity, "quantity", 1, "Quantity of the serving unit")
	_ = foodSelectCmd.MarkFlagRequired("unit")

	foodServingAddCmd.Flags().StringVar(&servingUnitName, "name", "", "Serving unit name, e.g. slice")
	foodServingAddCmd.Flags().Float64Var(&servingUnitValue, "value", 0, "Weight of one serving unit")
	foodServingAddCmd.Flags().StringVar(&servingUnitUnit, "unit", "g", "Mass unit of --value")
	_ = foodServingAddCmd.MarkFlagRequired("name")
	_ = foodServingAddCmd.MarkFlagRequired("value")
}
