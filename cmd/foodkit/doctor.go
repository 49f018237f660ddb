package foodkit

import (
	"database/sql"
	"fmt"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/spf13/cobra"
)

var (
	doctorFix  bool
	doctorJSON bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check stored foods for data that breaks aggregation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.RunDoctor(sqldb, doctorFix)
			if err != nil {
				return err
			}
			if doctorJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Foods checked: %d\n", report.FoodsChecked)
				fmt.Fprintf(cmd.OutOrStdout(), "Ingredients checked: %d\n", report.IngredientsChecked)
				for _, issue := range report.Issues {
					status := "issue"
					if issue.Fixed {
						status = "fixed"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %s (%s): %s\n", status, issue.Table, issue.Name, issue.ID, issue.Reason)
				}
			}
			if n := report.Unresolved(); n > 0 {
				return fmt.Errorf("doctor found %d unresolved issue(s)", n)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Reset broken serving selections to 100 g")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}
