package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/villarosa/admin-api/internal/config"
	"github.com/villarosa/admin-api/internal/domain"
)

// Open connects the document store and migrates the document tables.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	if err := db.AutoMigrate(&domain.AdminRecord{}, &domain.Property{}, &domain.ContactMessage{}); err != nil {
		return nil, fmt.Errorf("migrate document store: %w", err)
	}
	return db, nil
}
