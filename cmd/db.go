package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/model"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd())
}

func dbMigrateCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the registry schema",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			db, err := config.Connect(cfg, config.DefaultRetryPolicy(cfg.ConnectAttempts))
			if err != nil {
				logrus.Fatalf("connecting to database: %v", err)
			}
			if err := model.Migrate(db); err != nil {
				logrus.Fatalf("migrating schema: %v", err)
			}
			logrus.Info("schema is up to date")
		},
	}

	return command
}
