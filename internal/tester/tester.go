// Package tester gives tests a real database to run the cascade against.
package tester

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emrgen/pidkeeper/internal/model"
)

var (
	db  *gorm.DB
	seq atomic.Int64
)

// Setup opens a fresh named in-memory sqlite database with the full schema.
// Each call gets its own database, so tests start from empty tables. The
// shared cache keeps every pooled connection on the same database.
func Setup() {
	dsn := fmt.Sprintf("file:pidkeeper_test_%d?mode=memory&cache=shared", seq.Add(1))

	var err error
	db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	if err := model.Migrate(db); err != nil {
		panic(err)
	}
}

func TestDB() *gorm.DB {
	return db
}
