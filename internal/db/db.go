package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BruksfildServices01/table-reservations/internal/config"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Table{},
		&models.Reservation{},
		&models.ReservationArchive{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	// rows written before duration_minutes existed
	if err := db.Exec(`
        UPDATE reservations
        SET duration_minutes = 90
        WHERE duration_minutes IS NULL OR duration_minutes <= 0
    `).Error; err != nil {
		return fmt.Errorf("failed to backfill durations: %w", err)
	}

	return nil
}
