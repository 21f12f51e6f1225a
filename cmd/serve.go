package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/pidkeeper/internal/cache"
	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/job"
	"github.com/emrgen/pidkeeper/internal/queue"
	"github.com/emrgen/pidkeeper/internal/server"
	"github.com/emrgen/pidkeeper/internal/service"
	"github.com/emrgen/pidkeeper/internal/store"
)

func serveCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the registration HTTP service",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			db, err := config.Connect(cfg, config.DefaultRetryPolicy(cfg.ConnectAttempts))
			if err != nil {
				logrus.Fatalf("connecting to database: %v", err)
			}

			st := store.NewGormStore(db)
			if err := st.Migrate(); err != nil {
				logrus.Fatalf("migrating schema: %v", err)
			}

			var docCache cache.DocumentCache
			if cfg.RedisAddr != "" {
				c, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
				if err != nil {
					logrus.Fatalf("connecting to redis: %v", err)
				}
				docCache = c
			}

			var events queue.EventQueue = queue.NewNop()
			if cfg.KafkaBrokers != "" {
				k, err := queue.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
				if err != nil {
					logrus.Fatalf("connecting to kafka: %v", err)
				}
				defer k.Close()
				events = k
			}

			audit := job.NewDuplicateAudit(st, cfg.AuditSchedule)
			if err := audit.Start(); err != nil {
				logrus.Fatalf("starting duplicate audit: %v", err)
			}
			defer audit.Stop()

			svc := service.NewRegistrationService(st, nil, events)
			if err := server.New(cfg, svc, st, docCache).Start(); err != nil {
				logrus.Fatalf("http server: %v", err)
			}
		},
	}

	return command
}
