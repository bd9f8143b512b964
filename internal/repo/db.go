package repo

import (
	"AssiScan/internal/model"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const sqlitePrefix = "sqlite://"

// InitDB открывает БД по DSN и выполняет миграции.
// DSN вида sqlite://<path> открывает SQLite (modernc, без cgo), иначе - PostgreSQL.
func InitDB(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty database dsn")
	}

	var dial gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: path}
	} else {
		dial = postgres.Open(dsn)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт/обновляет таблицу records вместе с уникальным индексом естественного ключа.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Record{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
