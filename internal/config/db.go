package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RetryPolicy bounds the startup connection attempts. It applies only while
// establishing the pool; once connected, no operation is retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy doubles the wait per attempt, capped at a minute.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			d := time.Second << uint(attempt)
			if d > time.Minute {
				return time.Minute
			}
			return d
		},
	}
}

// Connect opens the database selected by cfg.DatabaseURL and configures the
// pool. Transient failures are retried per policy with backoff; a dialect
// the engine does not know is fatal immediately.
func Connect(cfg *Config, policy RetryPolicy) (*gorm.DB, error) {
	dial, err := dialector(cfg.DatabaseURL, cfg.DatabaseOptions)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(policy.Backoff(attempt - 1))
		}

		db, lastErr = gorm.Open(dial, &gorm.Config{
			TranslateError: true,
			Logger:         gormLogger(cfg.LogLevel),
		})
		if lastErr == nil {
			break
		}
		logrus.Warnf("database connection attempt %d/%d failed: %v",
			attempt+1, policy.MaxAttempts, lastErr)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("connecting to database: %w", lastErr)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnTimeoutSecs) * time.Second)

	return db, nil
}

// ConnectURL opens a secondary database, such as the new-site store read
// during migration. It shares cfg's pool sizing but does not retry; a
// secondary store that is down should fail fast.
func ConnectURL(dbURL string, cfg *Config) (*gorm.DB, error) {
	dial, err := dialector(dbURL, nil)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)

	return db, nil
}

// dialector maps a connection URI to a gorm dialector. Extra options ride
// along as query parameters (postgres) or are ignored (sqlite).
func dialector(dbURL string, options map[string]string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		u, err := url.Parse(dbURL)
		if err != nil {
			return nil, fmt.Errorf("parsing database url: %w", err)
		}
		q := u.Query()
		for k, v := range options {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return postgres.Open(u.String()), nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dbURL, "sqlite://")), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", dbURL)
	}
}

func gormLogger(level string) logger.Interface {
	if level == "debug" {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}
