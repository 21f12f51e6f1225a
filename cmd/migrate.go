package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/service"
	"github.com/emrgen/pidkeeper/internal/sitestore"
	"github.com/emrgen/pidkeeper/internal/store"
)

func migrateCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate <input.jsonl> <result.jsonl>",
		Short: "Migrate classic-site identifiers into the registry",
		Long: `Reads one classic-site row per line ({"filename","doi","v2","aop","v3"})
and registers each against the pids table, preferring identifiers the new
site already published when SITE_DATABASE_URL is set.`,
		Args: cobra.ExactArgs(2),
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

			var finder sitestore.ArticleFinder
			if cfg.SiteDatabaseURL != "" {
				siteDB, err := config.ConnectURL(cfg.SiteDatabaseURL, cfg)
				if err != nil {
					logrus.Fatalf("connecting to site database: %v", err)
				}
				finder = sitestore.NewGormFinder(siteDB)
			}

			svc := service.NewMigrationService(st, service.NewPidService(st, nil), finder)
			if err := runMigration(svc, args[0], args[1]); err != nil {
				logrus.Fatalf("migrating %s: %v", args[0], err)
			}
		},
	}

	return command
}

func runMigration(svc *service.MigrationService, inputPath, resultPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(resultPath)
	if err != nil {
		return fmt.Errorf("creating result log: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	var total, failed int
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		total++

		var row service.MigrationInput
		if err := json.Unmarshal(line, &row); err != nil {
			failed++
			logrus.Errorf("skipping malformed line %d: %v", total, err)
			continue
		}

		res := svc.Migrate(context.Background(), row)
		if res.Error != "" {
			failed++
		}

		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("marshalling result line: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	logrus.Infof("migration finished: %d rows, %d failed", total, failed)
	return nil
}
