package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/pidkeeper/internal/batch"
	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/service"
	"github.com/emrgen/pidkeeper/internal/store"
)

func importCmd() *cobra.Command {
	var databaseURL string

	command := &cobra.Command{
		Use:   "import <input.jsonl> <result.jsonl>",
		Short: "Register documents from a JSON lines file",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}

			db, err := config.Connect(cfg, config.DefaultRetryPolicy(cfg.ConnectAttempts))
			if err != nil {
				logrus.Fatalf("connecting to database: %v", err)
			}

			st := store.NewGormStore(db)
			if err := st.Migrate(); err != nil {
				logrus.Fatalf("migrating schema: %v", err)
			}

			svc := service.NewRegistrationService(st, nil, nil)
			summary, err := batch.NewImporter(svc).Run(context.Background(), args[0], args[1])
			if err != nil {
				logrus.Fatalf("importing %s: %v", args[0], err)
			}
			if summary.Failed > 0 {
				os.Exit(1)
			}
		},
	}

	command.Flags().StringVar(&databaseURL, "database", "", "registry database url (overrides config)")

	return command
}
