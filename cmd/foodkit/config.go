package foodkit

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/saadjs/foodkit/internal/service"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage foodkit configuration",
}

var (
	cfgLookupProvider string
	cfgFallbackOrder  string
	cfgDefaultBasis   string
	cfgMinConfidence  string
)

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set configuration values stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			updates := 0
			for flag, key := range map[string]string{
				"lookup-provider":            service.ConfigLookupProvider,
				"fallback-order":             service.ConfigLookupFallbackOrder,
				"default-basis":              service.ConfigDefaultBasis,
				"recognition-min-confidence": service.ConfigRecognitionMinScore,
			} {
				if !cmd.Flags().Changed(flag) {
					continue
				}
				value, _ := cmd.Flags().GetString(flag)
				if err := service.SetConfig(sqldb, key, value); err != nil {
					return err
				}
				updates++
			}
			if updates == 0 {
				return fmt.Errorf("set at least one flag")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d config value(s)\n", updates)
			return nil
		})
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			stored, err := service.ListConfig(sqldb)
			if err != nil {
				return err
			}
			path, err := resolveDBPath()
			if err != nil {
				return err
			}
			values := map[string]string{
				"db_path":    path,
				"log.level":  cfg.Log.Level,
				"log.format": cfg.Log.Format,
				"aws_region": cfg.AWSRegion,
			}
			if cfg.USDAAPIKey != "" {
				values["usda_api_key"] = "(set)"
			}
			for k, v := range stored {
				values[k] = v
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(cmd.OutOrStdout(), "KEY\tVALUE")
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, values[k])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd)

	configSetCmd.Flags().StringVar(&cfgLookupProvider, "lookup-provider", "", "Default lookup provider: openfoodfacts or usda")
	configSetCmd.Flags().StringVar(&cfgFallbackOrder, "fallback-order", "", "Barcode fallback order (comma-separated)")
	configSetCmd.Flags().StringVar(&cfgDefaultBasis, "default-basis", "", "Default nutrients basis: selected, weight, or reference")
	configSetCmd.Flags().StringVar(&cfgMinConfidence, "recognition-min-confidence", "", "Minimum label confidence (0-100) for recognize")
}
