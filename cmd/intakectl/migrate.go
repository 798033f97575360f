package main

import (
	"github.com/spf13/cobra"

	"intakeflow/internal/database"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `Create or update every table the service owns.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := initialize(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		if err := database.Migrate(a.DB); err != nil {
			return err
		}
		a.Log.Info("migration finished", "tables", len(database.Models()))
		return nil
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
