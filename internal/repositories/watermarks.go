package repositories

import (
	"context"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Watermarks struct {
	db *gorm.DB
}

func NewWatermarksRepository(db *gorm.DB) *Watermarks {
	return &Watermarks{db: db}
}

// Get returns the last successful fetch time for a city, zero if the city
// has never been fetched.
func (repo *Watermarks) Get(ctx context.Context, city string) (time.Time, error) {
	var watermark models.CityWatermark
	err := repo.db.WithContext(ctx).First(&watermark, "city = ?", city).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return watermark.LastFetchedAt, nil
}

func (repo *Watermarks) Set(ctx context.Context, city string, fetchedAt time.Time) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "city"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_fetched_at"}),
	}).Create(&models.CityWatermark{City: city, LastFetchedAt: fetchedAt}).Error
}

func (repo *Watermarks) List(ctx context.Context) ([]models.CityWatermark, error) {
	var watermarks []models.CityWatermark
	if err := repo.db.WithContext(ctx).Find(&watermarks).Error; err != nil {
		return nil, err
	}
	return watermarks, nil
}
