package foodkit

import (
	"fmt"

	"github.com/saadjs/foodkit/internal/app"
	"github.com/saadjs/foodkit/internal/db"
	"github.com/spf13/cobra"
)

var initWriteConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize local foodkit database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := app.EnsureDBDir(path); err != nil {
			return err
		}

		sqldb, err := db.Open(path)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		if err := db.ApplyMigrations(sqldb); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized foodkit database at %s\n", path)

		if initWriteConfig {
			out := configPath
			if out == "" {
				if out, err = app.DefaultConfigPath(); err != nil {
					return err
				}
			}
			saved := *cfg
			saved.DBPath = path
			// Keys stay in the environment.
			saved.USDAAPIKey = ""
			if err := saved.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Write the effective config file")
}
