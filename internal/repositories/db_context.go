package repositories

import (
	"fmt"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(models.City{})
	if err != nil {
		return fmt.Errorf("failed to migrate City entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.User{})
	if err != nil {
		return fmt.Errorf("failed to migrate User entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.SavedSearch{})
	if err != nil {
		return fmt.Errorf("failed to migrate SavedSearch entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.Listing{})
	if err != nil {
		return fmt.Errorf("failed to migrate Listing entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.SentNotification{})
	if err != nil {
		return fmt.Errorf("failed to migrate SentNotification entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.CityWatermark{})
	if err != nil {
		return fmt.Errorf("failed to migrate CityWatermark entity: %w", err)
	}

	if err = c.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_search_listing " +
		"ON sent_notifications (search_id, listing_id);").
		Error; err != nil {
		return fmt.Errorf("failed to create sent notification index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
